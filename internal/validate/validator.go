// Package validate decides which proposed corrections are trustworthy enough
// to show a reviewer. Every accepted correction has been checked against the
// live source text at its resolved span.
package validate

import (
	"strings"

	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/position"
)

// Rejection reasons recorded on ValidationOutcome
const (
	ReasonLowConfidence    = "low_confidence"
	ReasonNoOp             = "no_op"
	ReasonContactMismatch  = "contact_mismatch"
	ReasonContactNotRemove = "contact_not_removal"
	ReasonEmptyReplacement = "empty_replacement"
	ReasonPositionMismatch = "position_mismatch"
	ReasonNotFound         = "not_found"
	ReasonTextMismatch     = "text_mismatch"
	ReasonOverlap          = "overlap"
)

// closeLengthSlack is how far apart in length two tokens may be and still be close
const closeLengthSlack = 3

// Config controls validation
type Config struct {
	Threshold      float64 // Inclusive minimum confidence
	RejectOverlaps bool
	Position       position.Options
}

// DefaultConfig returns the standard validation settings
func DefaultConfig() Config {
	return ConfigFromModel(model.DefaultConfig().Detection)
}

// ConfigFromModel builds a validator config from the detection section
func ConfigFromModel(c model.DetectionConfig) Config {
	return Config{
		Threshold:      c.ConfidenceThreshold,
		RejectOverlaps: c.RejectOverlaps,
		Position: position.Options{
			Proximity: c.ProximityWindow,
			Accept:    c.AcceptWindow,
			Search:    c.SearchWindow,
		},
	}
}

// Validator filters proposed corrections against a source text
type Validator struct {
	threshold      float64
	rejectOverlaps bool
	resolver       *position.Resolver
}

// NewValidator creates a new validator
func NewValidator(cfg Config) *Validator {
	return &Validator{
		threshold:      cfg.Threshold,
		rejectOverlaps: cfg.RejectOverlaps,
		resolver:       position.NewResolver(cfg.Position),
	}
}

// Validate returns the accepted corrections in their original order, each
// with a verified span and pending status, plus one outcome per proposal.
func (v *Validator) Validate(source string, result model.DetectionResult) ([]model.Correction, []model.ValidationOutcome) {
	src := []rune(source)
	accepted := make([]model.Correction, 0, len(result.Corrections))
	outcomes := make([]model.ValidationOutcome, 0, len(result.Corrections))

	for _, c := range result.Corrections {
		outcome := v.validateOne(src, source, c, accepted)
		outcomes = append(outcomes, outcome)
		if outcome.Accepted {
			accepted = append(accepted, outcome.Correction)
		}
	}

	return accepted, outcomes
}

func (v *Validator) validateOne(src []rune, source string, c model.Correction, accepted []model.Correction) model.ValidationOutcome {
	outcome := model.ValidationOutcome{Correction: c, ResolvedSpan: c.Span}
	reject := func(reason string) model.ValidationOutcome {
		outcome.Reason = reason
		return outcome
	}

	if c.Confidence < v.threshold {
		return reject(ReasonLowConfidence)
	}
	if c.Original == c.Replacement && !c.IsDeletion() {
		return reject(ReasonNoOp)
	}

	res := v.resolver.Resolve(source, c.Original, c.Span)
	outcome.ResolvedSpan = res.Span
	outcome.Found = res.Found
	outcome.FoundText = textAt(src, res.Span)

	if position.LooksLikeContact(c.Original) {
		if !res.Found || ClassifyContact(outcome.FoundText) == ContactNone || !sameContact(c.Original, outcome.FoundText) {
			return reject(ReasonContactMismatch)
		}
		if !c.IsDeletion() {
			return reject(ReasonContactNotRemove)
		}
		// Remove what is actually printed, spacing and case included
		c.Original = outcome.FoundText
	} else {
		if c.IsDeletion() {
			return reject(ReasonEmptyReplacement)
		}
		if !(res.Found && outcome.FoundText == c.Original) && !isClose(outcome.FoundText, c.Original) {
			return reject(ReasonPositionMismatch)
		}
	}

	if !res.Found {
		return reject(ReasonNotFound)
	}
	if outcome.FoundText != c.Original {
		return reject(ReasonTextMismatch)
	}

	if v.rejectOverlaps {
		for _, a := range accepted {
			if a.Span.Overlaps(res.Span) {
				return reject(ReasonOverlap)
			}
		}
	}

	c.Span = res.Span
	c.Status = model.StatusPending
	outcome.Correction = c
	outcome.Accepted = true
	return outcome
}

// ValidateFormatting relocates formatting annotations onto the text they
// describe and drops the ones that cannot be found
func (v *Validator) ValidateFormatting(source string, changes []model.FormattingChange) []model.FormattingChange {
	kept := make([]model.FormattingChange, 0, len(changes))
	for _, f := range changes {
		res := v.resolver.Resolve(source, f.Text, f.Span)
		if !res.Found {
			continue
		}
		f.Span = res.Span
		f.Status = model.StatusPending
		kept = append(kept, f)
	}
	return kept
}

// isClose reports whether the text found at a span plausibly is the claimed
// token: equal, one inside the other, or near in length for real words
func isClose(found, original string) bool {
	if found == original {
		return true
	}
	if found == "" || original == "" {
		return false
	}
	if strings.Contains(found, original) || strings.Contains(original, found) {
		return true
	}
	fl, ol := len([]rune(found)), len([]rune(original))
	if fl <= 2 || ol <= 2 {
		return false
	}
	diff := fl - ol
	if diff < 0 {
		diff = -diff
	}
	return diff <= closeLengthSlack
}

func textAt(src []rune, span model.Span) string {
	if !span.Valid(len(src)) {
		start, end := span.Start, span.End
		if start < 0 {
			start = 0
		}
		if end > len(src) {
			end = len(src)
		}
		if start >= end {
			return ""
		}
		return string(src[start:end])
	}
	return string(src[span.Start:span.End])
}
