// Package repair turns raw correction-service output into a typed
// DetectionResult. Output is treated as untrusted bytes: it may be wrapped in
// markdown, surrounded by prose, or cut off mid-value when the service hits
// its output limit. Repair never fails; the terminal fallback is an empty result.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/majalla/internal/model"
)

// RawResponse is service output that has not been parsed or validated
type RawResponse string

// Step names the repair ladder rung that produced a result
type Step string

const (
	StepStrict        Step = "strict"
	StepTrimFragment  Step = "trim_fragment"
	StepStripCommas   Step = "strip_commas"
	StepCloseBrackets Step = "close_brackets"
	StepExtracted     Step = "corrections_only"
	StepFailed        Step = "failed"
)

// Outcome describes how a response was recovered
type Outcome struct {
	Step    Step
	Dropped int   // Items that failed the per-item schema
	Err     error // Last parse error, set when Step is not StepStrict
}

// Repaired reports whether anything beyond strict parsing was needed
func (o Outcome) Repaired() bool {
	return o.Step != StepStrict
}

var errNotObject = errors.New("structured output is not an object or array")

// Repairer parses service output with a ladder of increasingly aggressive fixes
type Repairer struct{}

// NewRepairer creates a repairer
func NewRepairer() *Repairer {
	return &Repairer{}
}

// Parse strictly decodes a well-formed response; no repair is attempted
func (r *Repairer) Parse(raw RawResponse, source string) (model.DetectionResult, Outcome, error) {
	doc, err := decode(string(raw))
	if err != nil {
		return model.EmptyResult(source), Outcome{Step: StepFailed, Err: err}, err
	}
	result, dropped := convert(doc, source)
	return result, Outcome{Step: StepStrict, Dropped: dropped}, nil
}

// Repair recovers a best-effort DetectionResult from raw. It tries a strict
// parse first, then trims an incomplete trailing fragment, strips dangling
// commas, appends missing closers, and finally extracts only the corrections
// array. If all of that fails the result is empty with zero confidence.
func (r *Repairer) Repair(raw RawResponse, source string) (model.DetectionResult, Outcome) {
	content := stripCodeFences(strings.TrimSpace(string(raw)))
	if content == "" {
		return model.EmptyResult(source), Outcome{Step: StepFailed, Err: errors.New("empty structured output")}
	}

	var lastErr error
	attempt := func(step Step, candidate string) (model.DetectionResult, Outcome, bool) {
		doc, err := decode(candidate)
		if err != nil {
			lastErr = err
			return model.DetectionResult{}, Outcome{}, false
		}
		result, dropped := convert(doc, source)
		out := Outcome{Step: step, Dropped: dropped}
		if step != StepStrict {
			out.Err = lastErr
		}
		return result, out, true
	}

	if res, out, ok := attempt(StepStrict, content); ok {
		return res, out
	}
	if candidate := extractJSONCandidate(content); candidate != "" && candidate != content {
		if res, out, ok := attempt(StepStrict, candidate); ok {
			return res, out
		}
	}

	body := skipLeadingProse(content)

	trimmed := trimFragment(body)
	if res, out, ok := attempt(StepTrimFragment, trimmed); ok {
		return res, out
	}

	decommaed := stripTrailingCommas(trimmed)
	if res, out, ok := attempt(StepStripCommas, decommaed); ok {
		return res, out
	}

	closed := closeBrackets(decommaed)
	if res, out, ok := attempt(StepCloseBrackets, closed); ok {
		return res, out
	}

	if items, found := extractCorrections(body); found {
		doc := map[string]any{
			"corrections":       items,
			"formattingChanges": []any{},
			"correctedText":     source,
			"confidence":        0.0,
		}
		result, dropped := convert(doc, source)
		return result, Outcome{Step: StepExtracted, Dropped: dropped, Err: lastErr}
	}

	if lastErr == nil {
		lastErr = errNotObject
	}
	return model.EmptyResult(source), Outcome{Step: StepFailed, Err: fmt.Errorf("unrecoverable structured output: %w", lastErr)}
}

// decode parses candidate into a generic JSON document
func decode(candidate string) (any, error) {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, err
	}
	switch doc.(type) {
	case map[string]any, []any:
		return doc, nil
	}
	return nil, errNotObject
}
