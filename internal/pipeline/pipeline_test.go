package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/majalla/internal/cache"
	"github.com/ppiankov/majalla/internal/llm"
	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/repair"
)

const film = "الفلم الجميل"

const filmResponse = `{
  "corrections": [
    {"id": "1", "type": "ocr_error", "original": "الفلم", "corrected": "الفيلم",
     "reason": "missing ya", "position": {"start": 0, "end": 5}, "confidence": 0.99},
    {"id": "2", "type": "spelling", "original": "الجميل", "corrected": "الجميلة",
     "reason": "agreement", "position": {"start": 6, "end": 12}, "confidence": 0.5}
  ],
  "formattingChanges": [],
  "correctedText": "الفيلم الجميل",
  "confidence": 0.95
}`

// mockProvider answers from a queue of canned responses and errors
type mockProvider struct {
	calls     atomic.Int32
	responses []string
	errs      []error
	lastReq   llm.DetectRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Detect(ctx context.Context, req llm.DetectRequest) (*llm.DetectResponse, error) {
	n := int(m.calls.Add(1)) - 1
	m.lastReq = req
	if n < len(m.errs) && m.errs[n] != nil {
		return nil, m.errs[n]
	}
	raw := ""
	if len(m.responses) > 0 {
		raw = m.responses[min(n, len(m.responses)-1)]
	}
	return &llm.DetectResponse{Raw: raw, Model: "gpt-4o-mini", InputTokens: 1000, OutputTokens: 500}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(p llm.Provider, opts Options) *Pipeline {
	opts.Provider = p
	opts.Logger = quietLogger()
	opts.RetryDelay = time.Millisecond
	return New(opts)
}

func TestDetectCorrections_AcceptsAndFillsProvenance(t *testing.T) {
	provider := &mockProvider{responses: []string{filmResponse}}
	p := newTestPipeline(provider, Options{})

	result, err := p.DetectCorrections(context.Background(), film)
	if err != nil {
		t.Fatalf("DetectCorrections failed: %v", err)
	}

	if len(result.Corrections) != 1 {
		t.Fatalf("Expected 1 accepted correction, got %d", len(result.Corrections))
	}
	c := result.Corrections[0]
	if c.Original != "الفلم" || c.Span != (model.Span{Start: 0, End: 5}) || c.Status != model.StatusPending {
		t.Errorf("Unexpected correction: %+v", c)
	}

	prov := result.Provenance
	if prov.Provider != "mock" || prov.ModelUsed != "gpt-4o-mini" || prov.TokensUsed != 1500 {
		t.Errorf("Unexpected provenance: %+v", prov)
	}
	if prov.Cost <= 0 {
		t.Errorf("Expected a cost estimate, got %v", prov.Cost)
	}
	if prov.Rejected != 1 || prov.Truncated || prov.Repair != string(repair.StepStrict) {
		t.Errorf("Unexpected provenance: %+v", prov)
	}
	if !strings.Contains(provider.lastReq.Text, film) {
		t.Errorf("Expected the page text to be submitted, got %q", provider.lastReq.Text)
	}
}

func TestDetectCorrections_EmptyText(t *testing.T) {
	provider := &mockProvider{}
	p := newTestPipeline(provider, Options{})

	result, err := p.DetectCorrections(context.Background(), "  \n ")
	if err != nil {
		t.Fatalf("Expected no error for empty text, got %v", err)
	}
	if len(result.Corrections) != 0 || result.Confidence != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
	if provider.calls.Load() != 0 {
		t.Error("Expected the service not to be called for empty text")
	}
}

func TestDetectCorrections_NoProvider(t *testing.T) {
	p := New(Options{Logger: quietLogger()})
	if _, err := p.DetectCorrections(context.Background(), film); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Expected ErrNoProvider, got %v", err)
	}
}

func TestDetectCorrections_MalformedOutputIsEmpty(t *testing.T) {
	provider := &mockProvider{responses: []string{"Sorry, I cannot help with that."}}
	p := newTestPipeline(provider, Options{})

	d, err := p.Detect(context.Background(), film)
	if err != nil {
		t.Fatalf("Expected malformed output not to be an error, got %v", err)
	}
	if len(d.Result.Corrections) != 0 || d.Repair.Step != repair.StepFailed {
		t.Errorf("Expected empty result from failed repair, got %+v / %+v", d.Result, d.Repair)
	}
}

func TestDetectCorrections_TruncatedOutputRecovered(t *testing.T) {
	truncated := strings.TrimSuffix(strings.TrimSpace(filmResponse), "}")
	provider := &mockProvider{responses: []string{truncated}}
	p := newTestPipeline(provider, Options{})

	d, err := p.Detect(context.Background(), film)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(d.Result.Corrections) != 1 {
		t.Errorf("Expected the correction to survive repair, got %d", len(d.Result.Corrections))
	}
	if !d.Repair.Repaired() {
		t.Error("Expected repair to be reported")
	}
}

func TestDetectCorrections_InputTruncation(t *testing.T) {
	provider := &mockProvider{responses: []string{`{"corrections": [
		{"id": "1", "original": "الجميل", "corrected": "الجميلة", "position": {"start": 6, "end": 12}, "confidence": 1}
	]}`}}
	p := newTestPipeline(provider, Options{MaxInputChars: 8})

	result, err := p.DetectCorrections(context.Background(), film)
	if err != nil {
		t.Fatalf("DetectCorrections failed: %v", err)
	}
	if !result.Provenance.Truncated {
		t.Error("Expected truncation flag")
	}
	if provider.lastReq.Text != "الفلم ال" {
		t.Errorf("Expected 8 runes submitted, got %q", provider.lastReq.Text)
	}
	if len(result.Corrections) != 1 {
		t.Errorf("Expected validation against the full text, got %d corrections", len(result.Corrections))
	}
}

func TestDetectCorrections_TransientThenSuccess(t *testing.T) {
	provider := &mockProvider{
		responses: []string{filmResponse},
		errs: []error{
			&llm.APIError{Provider: "mock", StatusCode: 503},
			&llm.APIError{Provider: "mock", StatusCode: 429},
		},
	}
	p := newTestPipeline(provider, Options{})

	result, err := p.DetectCorrections(context.Background(), film)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(result.Corrections) != 1 {
		t.Errorf("Expected 1 correction, got %d", len(result.Corrections))
	}
	if provider.calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", provider.calls.Load())
	}
}

func TestDetectCorrections_PermanentFailure(t *testing.T) {
	provider := &mockProvider{errs: []error{&llm.APIError{Provider: "mock", StatusCode: 401, Message: "bad key"}}}
	p := newTestPipeline(provider, Options{})

	_, err := p.DetectCorrections(context.Background(), film)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Errorf("Expected wrapped 401 APIError, got %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("Expected no retries for 401, got %d attempts", provider.calls.Load())
	}
}

func TestDetectCorrections_AllRetriesExhausted(t *testing.T) {
	unavailable := &llm.APIError{Provider: "mock", StatusCode: 503}
	provider := &mockProvider{errs: []error{unavailable, unavailable, unavailable, unavailable}}
	p := newTestPipeline(provider, Options{})

	if _, err := p.DetectCorrections(context.Background(), film); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if provider.calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", provider.calls.Load())
	}
}

func TestDetectCorrections_Cache(t *testing.T) {
	provider := &mockProvider{responses: []string{filmResponse}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := newTestPipeline(provider, Options{Cache: c})

	first, err := p.DetectCorrections(context.Background(), film)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	second, err := p.DetectCorrections(context.Background(), film)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if provider.calls.Load() != 1 {
		t.Errorf("Expected a single service call, got %d", provider.calls.Load())
	}
	if first.Provenance.Cached || !second.Provenance.Cached {
		t.Errorf("Expected only the second result to be cached: %v / %v", first.Provenance.Cached, second.Provenance.Cached)
	}
	if len(second.Corrections) != len(first.Corrections) {
		t.Errorf("Cached result differs: %+v", second)
	}
}

func TestDetectCorrections_Cancelled(t *testing.T) {
	provider := &mockProvider{errs: []error{context.Canceled}}
	p := newTestPipeline(provider, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.DetectCorrections(ctx, film); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text      string
		limit     int
		want      string
		truncated bool
	}{
		{film, 5, "الفلم", true},
		{film, 12, film, false},
		{film, 0, film, false},
		{"", 5, "", false},
	}
	for _, tt := range tests {
		got, truncated := Truncate(tt.text, tt.limit)
		if got != tt.want || truncated != tt.truncated {
			t.Errorf("Truncate(%q, %d) = %q, %v; want %q, %v", tt.text, tt.limit, got, truncated, tt.want, tt.truncated)
		}
	}
}
