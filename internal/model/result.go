package model

// DetectionResult is the validated output of one detection run
type DetectionResult struct {
	Corrections       []Correction       `json:"corrections"`
	FormattingChanges []FormattingChange `json:"formattingChanges"`
	CorrectedText     string             `json:"correctedText"` // Advisory only, never applied
	Confidence        float64            `json:"confidence"`
	Provenance        Provenance         `json:"provenance"`
}

// Provenance records where a detection result came from
type Provenance struct {
	ModelUsed  string  `json:"modelUsed,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Cost       float64 `json:"cost"`
	TokensUsed int     `json:"tokensUsed,omitempty"`
	Truncated  bool    `json:"truncated"`          // Input was cut before submission
	Repair     string  `json:"repair,omitempty"`   // Which repair step produced the result
	Cached     bool    `json:"cached,omitempty"`   // Served from the response cache
	Rejected   int     `json:"rejected,omitempty"` // Proposals dropped by validation
}

// EmptyResult returns the explicit "no suggestions" result
func EmptyResult(source string) DetectionResult {
	return DetectionResult{
		Corrections:       []Correction{},
		FormattingChanges: []FormattingChange{},
		CorrectedText:     source,
		Confidence:        0,
	}
}

// ValidationOutcome records how the validator judged one proposed correction
type ValidationOutcome struct {
	Correction   Correction `json:"correction"`
	ResolvedSpan Span       `json:"resolvedSpan"`
	FoundText    string     `json:"foundText"`
	Found        bool       `json:"found"`
	Accepted     bool       `json:"accepted"`
	Reason       string     `json:"reason,omitempty"`
}
