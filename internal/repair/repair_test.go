package repair

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/majalla/internal/model"
)

const source = "الفلم الجميل"

const wellFormed = `{
  "corrections": [
    {"id": "c1", "type": "ocr_error", "original": "الفلم", "corrected": "الفيلم",
     "reason": "missing ya", "position": {"start": 0, "end": 5}, "confidence": 0.99},
    {"id": "c2", "type": "spelling", "original": "الجميل", "corrected": "الجميلة",
     "reason": "agreement", "position": {"start": 6, "end": 12}, "confidence": 0.6}
  ],
  "formattingChanges": [
    {"id": "f1", "type": "title", "text": "الفلم الجميل", "position": {"start": 0, "end": 12}, "suggestion": "heading"}
  ],
  "correctedText": "الفيلم الجميلة",
  "confidence": 0.95
}`

func TestRepair_WellFormedIsStrictParse(t *testing.T) {
	r := NewRepairer()

	parsed, parseOut, err := r.Parse(RawResponse(wellFormed), source)
	require.NoError(t, err)
	repaired, out := r.Repair(RawResponse(wellFormed), source)

	assert.Equal(t, parsed, repaired)
	assert.Equal(t, StepStrict, out.Step)
	assert.Equal(t, parseOut.Step, out.Step)
	assert.False(t, out.Repaired())

	require.Len(t, repaired.Corrections, 2)
	c := repaired.Corrections[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, model.KindOCRError, c.Kind)
	assert.Equal(t, "الفلم", c.Original)
	assert.Equal(t, "الفيلم", c.Replacement)
	assert.Equal(t, model.Span{Start: 0, End: 5}, c.Span)
	assert.Equal(t, 0.99, c.Confidence)
	assert.Equal(t, model.StatusPending, c.Status)
	assert.Equal(t, model.KindSpelling, repaired.Corrections[1].Kind)

	require.Len(t, repaired.FormattingChanges, 1)
	assert.Equal(t, model.FormatTitle, repaired.FormattingChanges[0].Kind)
	assert.Equal(t, model.StatusPending, repaired.FormattingChanges[0].Status)
	assert.Equal(t, "الفيلم الجميلة", repaired.CorrectedText)
	assert.Equal(t, 0.95, repaired.Confidence)
}

func TestRepair_MissingClosingBrace(t *testing.T) {
	r := NewRepairer()
	complete, _, err := r.Parse(RawResponse(wellFormed), source)
	require.NoError(t, err)

	truncated := strings.TrimSuffix(strings.TrimSpace(wellFormed), "}")
	got, out := r.Repair(RawResponse(truncated), source)

	assert.Equal(t, StepCloseBrackets, out.Step)
	assert.True(t, out.Repaired())
	assert.Equal(t, complete.Corrections, got.Corrections)
	assert.Equal(t, complete.FormattingChanges, got.FormattingChanges)
}

func TestRepair_TruncatedInsideCorrectedText(t *testing.T) {
	r := NewRepairer()
	complete, _, err := r.Parse(RawResponse(wellFormed), source)
	require.NoError(t, err)

	cut := strings.Index(wellFormed, `"الفيلم الجميلة"`) + len(`"الفيلم`)
	got, out := r.Repair(RawResponse(wellFormed[:cut]), source)

	assert.Equal(t, StepCloseBrackets, out.Step)
	assert.Equal(t, complete.Corrections, got.Corrections)
	assert.Equal(t, source, got.CorrectedText, "a cut-off correctedText falls back to the source")
}

func TestRepair_TruncatedInsideSecondCorrection(t *testing.T) {
	r := NewRepairer()
	cut := strings.Index(wellFormed, `"original": "الجميل"`) + len(`"original": "الج`)
	got, out := r.Repair(RawResponse(wellFormed[:cut]), source)

	require.Len(t, got.Corrections, 1)
	assert.Equal(t, "c1", got.Corrections[0].ID)
	assert.Equal(t, 1, out.Dropped, "the half-written correction fails its schema")
	assert.Empty(t, got.FormattingChanges)
}

func TestRepair_TrailingNumberIsNotTrusted(t *testing.T) {
	raw := `{"corrections": [
  {"id": "1", "original": "الفلم", "corrected": "الفيلم", "position": {"start": 0, "end": 5}, "confidence": 0.99},
  {"id": "2", "original": "الجميل", "corrected": "الجميلة", "position": {"start": 6, "end": 12}, "confidence": 0.995}
]}`
	cut := strings.Index(raw, "0.995") + len("0.99")

	got, out := NewRepairer().Repair(RawResponse(raw[:cut]), source)

	assert.Equal(t, StepCloseBrackets, out.Step)
	require.Len(t, got.Corrections, 2)
	assert.Equal(t, 0.99, got.Corrections[0].Confidence)
	assert.Equal(t, "2", got.Corrections[1].ID)
	assert.Zero(t, got.Corrections[1].Confidence, "a number at the cut may be missing digits")
}

func TestRepair_CodeFenceAndProse(t *testing.T) {
	r := NewRepairer()

	fenced := "```json\n" + wellFormed + "\n```"
	got, out := r.Repair(RawResponse(fenced), source)
	assert.Equal(t, StepStrict, out.Step)
	assert.Len(t, got.Corrections, 2)

	prose := "Here are the corrections you asked for:\n" + wellFormed + "\nLet me know if you need more."
	got, out = r.Repair(RawResponse(prose), source)
	assert.Equal(t, StepStrict, out.Step)
	assert.Len(t, got.Corrections, 2)

	unclosedFence := "```json\n" + strings.TrimSuffix(strings.TrimSpace(wellFormed), "}")
	got, _ = r.Repair(RawResponse(unclosedFence), source)
	assert.Len(t, got.Corrections, 2)
}

func TestRepair_FallsBackToCorrectionsArray(t *testing.T) {
	broken := `{"corrections": [
		{"id": "c1", "original": "الفلم", "corrected": "الفيلم", "position": {"start": 0, "end": 5}, "confidence": 0.99},
		{"id": "c2" "original": "oops"}
	], "confidence": 0.9 "correctedText": "x"}`

	got, out := NewRepairer().Repair(RawResponse(broken), source)
	assert.Equal(t, StepExtracted, out.Step)
	require.Len(t, got.Corrections, 1)
	assert.Equal(t, "c1", got.Corrections[0].ID)
	assert.Empty(t, got.FormattingChanges)
	assert.Equal(t, source, got.CorrectedText)
	assert.Error(t, out.Err)
}

func TestRepair_UnrecoverableIsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "I could not process this text.", "null", `"just a string"`} {
		got, out := NewRepairer().Repair(RawResponse(raw), source)
		assert.Equal(t, StepFailed, out.Step, "raw=%q", raw)
		assert.Error(t, out.Err)
		assert.Empty(t, got.Corrections)
		assert.NotNil(t, got.Corrections)
		assert.Zero(t, got.Confidence)
		assert.Equal(t, source, got.CorrectedText)
	}
}

func TestRepair_ItemSchema(t *testing.T) {
	raw := `{"corrections": [
		{"id": "1", "original": "a", "corrected": "b", "confidence": 1.5},
		{"id": "1", "original": "", "corrected": "b"},
		{"id": 7, "original": "c", "corrected": "d", "confidence": 0.99, "reason": null},
		{"id": "7", "original": "e", "corrected": "", "confidence": 1},
		{"corrected": "x"}
	]}`

	got, out := NewRepairer().Repair(RawResponse(raw), source)
	assert.Equal(t, StepStrict, out.Step)
	assert.Equal(t, 3, out.Dropped)
	require.Len(t, got.Corrections, 2)

	assert.Equal(t, "7", got.Corrections[0].ID)
	assert.NotEqual(t, "7", got.Corrections[1].ID, "duplicate IDs are replaced")
	assert.NotEmpty(t, got.Corrections[1].ID)
	assert.True(t, got.Corrections[1].IsDeletion())
	assert.Equal(t, model.Span{}, got.Corrections[0].Span, "missing position decodes to an empty span")
}

func TestRepair_BareArray(t *testing.T) {
	raw := `[{"original": "a", "corrected": "b", "position": {"start": 0, "end": 1}, "confidence": 1}]`
	got, out := NewRepairer().Repair(RawResponse(raw), source)
	assert.Equal(t, StepStrict, out.Step)
	require.Len(t, got.Corrections, 1)
	assert.NotEmpty(t, got.Corrections[0].ID)
}

func TestParse_Malformed(t *testing.T) {
	got, out, err := NewRepairer().Parse(RawResponse(`{"corrections": [`), source)
	assert.Error(t, err)
	assert.Equal(t, StepFailed, out.Step)
	assert.Empty(t, got.Corrections)
}
