package repair

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/majalla/internal/model"
)

const positionSchema = `{
	"type": "object",
	"required": ["start", "end"],
	"properties": {
		"start": {"type": "integer", "minimum": 0},
		"end": {"type": "integer", "minimum": 0}
	}
}`

var correctionSchema = jsonschema.MustCompileString("correction.json", `{
	"type": "object",
	"required": ["original", "corrected"],
	"properties": {
		"id": {"type": ["string", "integer", "null"]},
		"type": {"type": ["string", "null"]},
		"original": {"type": "string", "minLength": 1},
		"corrected": {"type": "string"},
		"reason": {"type": ["string", "null"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"position": `+positionSchema+`
	}
}`)

var formattingSchema = jsonschema.MustCompileString("formatting.json", `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"id": {"type": ["string", "integer", "null"]},
		"type": {"type": ["string", "null"]},
		"text": {"type": "string"},
		"suggestion": {"type": ["string", "null"]},
		"position": `+positionSchema+`
	}
}`)

// convert maps a decoded document onto the domain types. Items failing their
// schema are dropped and counted. Every surviving item gets a unique ID.
func convert(doc any, source string) (model.DetectionResult, int) {
	result := model.EmptyResult(source)

	var root map[string]any
	switch d := doc.(type) {
	case map[string]any:
		root = d
	case []any:
		// A bare array is taken to be the corrections list
		root = map[string]any{"corrections": d}
	default:
		return result, 0
	}

	dropped := 0
	seen := make(map[string]bool)
	uniqueID := func(raw any) string {
		id := asString(raw)
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		return id
	}

	items, _ := root["corrections"].([]any)
	for _, item := range items {
		if correctionSchema.Validate(item) != nil {
			dropped++
			continue
		}
		m := item.(map[string]any)
		result.Corrections = append(result.Corrections, model.Correction{
			ID:          uniqueID(m["id"]),
			Kind:        model.ParseCorrectionKind(asString(m["type"])),
			Original:    asString(m["original"]),
			Replacement: asString(m["corrected"]),
			Reason:      asString(m["reason"]),
			Span:        asSpan(m["position"]),
			Confidence:  asFloat(m["confidence"]),
			Status:      model.StatusPending,
		})
	}

	changes, _ := root["formattingChanges"].([]any)
	for _, item := range changes {
		if formattingSchema.Validate(item) != nil {
			dropped++
			continue
		}
		m := item.(map[string]any)
		result.FormattingChanges = append(result.FormattingChanges, model.FormattingChange{
			ID:         uniqueID(m["id"]),
			Kind:       model.FormattingKind(asString(m["type"])),
			Text:       asString(m["text"]),
			Span:       asSpan(m["position"]),
			Suggestion: asString(m["suggestion"]),
			Status:     model.StatusPending,
		})
	}

	if text, ok := root["correctedText"].(string); ok && strings.TrimSpace(text) != "" {
		result.CorrectedText = text
	}
	if c, ok := root["confidence"].(float64); ok && c >= 0 && c <= 1 {
		result.Confidence = c
	}

	return result, dropped
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

func asFloat(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func asSpan(v any) model.Span {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Span{}
	}
	return model.Span{
		Start: int(asFloat(m["start"])),
		End:   int(asFloat(m["end"])),
	}
}
