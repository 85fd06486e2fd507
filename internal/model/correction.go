package model

// Span is a half-open [Start, End) range of rune offsets into one text snapshot
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the span
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one rune
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Valid reports whether the span fits inside a text of n runes
func (s Span) Valid(n int) bool {
	return s.Start >= 0 && s.End >= s.Start && s.End <= n
}

// CorrectionKind classifies a proposed edit
type CorrectionKind string

const (
	KindOCRError   CorrectionKind = "ocr_error"  // Misrecognized characters
	KindSpelling   CorrectionKind = "spelling"   // Orthographic mistake in the print itself
	KindFormatting CorrectionKind = "formatting" // Stray punctuation, spacing
)

// ParseCorrectionKind maps service output onto a known kind, defaulting to ocr_error
func ParseCorrectionKind(s string) CorrectionKind {
	switch CorrectionKind(s) {
	case KindSpelling:
		return KindSpelling
	case KindFormatting:
		return KindFormatting
	default:
		return KindOCRError
	}
}

// Status is the review state of a correction or formatting change
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted" // Approved removal (e.g. a stray email address)
)

// ParseStatus validates a status string
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusDeleted:
		return Status(s), true
	}
	return "", false
}

// Applicable reports whether the applier should splice a correction with this status
func (s Status) Applicable() bool {
	return s == StatusApproved || s == StatusDeleted
}

// Correction is a single proposed or confirmed substring replacement
type Correction struct {
	ID          string         `json:"id"`
	Kind        CorrectionKind `json:"type"`
	Original    string         `json:"original"`
	Replacement string         `json:"corrected"`
	Reason      string         `json:"reason,omitempty"`
	Span        Span           `json:"position"`
	Confidence  float64        `json:"confidence"`
	Status      Status         `json:"status,omitempty"`
}

// IsDeletion reports whether the correction removes text without replacing it
func (c Correction) IsDeletion() bool {
	return c.Replacement == ""
}

// FormattingKind classifies a structural annotation
type FormattingKind string

const (
	FormatTitle        FormattingKind = "title"
	FormatParagraph    FormattingKind = "paragraph"
	FormatQuote        FormattingKind = "quote"
	FormatSectionBreak FormattingKind = "section_break"
)

// FormattingChange is an advisory structural annotation; it never rewrites text
type FormattingChange struct {
	ID         string         `json:"id"`
	Kind       FormattingKind `json:"type"`
	Text       string         `json:"text"`
	Span       Span           `json:"position"`
	Suggestion string         `json:"suggestion,omitempty"`
	Status     Status         `json:"status,omitempty"`
}
