// Package pipeline runs one detection: submit a page to the correction
// service, repair its output, and validate every proposal against the page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/majalla/internal/cache"
	"github.com/ppiankov/majalla/internal/llm"
	"github.com/ppiankov/majalla/internal/model"
	"github.com/ppiankov/majalla/internal/repair"
	"github.com/ppiankov/majalla/internal/validate"
)

// ErrNoProvider is returned when detection is requested without a service
var ErrNoProvider = errors.New("no correction service configured")

// Options configures a Pipeline. Zero values take defaults.
type Options struct {
	Provider  llm.Provider
	Validator *validate.Validator
	Cache     cache.Cache // nil disables caching
	Logger    *slog.Logger

	Model         string // Passed to the provider; empty uses the provider default
	MaxTokens     int
	MaxInputChars int // Runes submitted per request

	RetryAttempts uint
	RetryDelay    time.Duration
}

// Pipeline orchestrates detection runs
type Pipeline struct {
	provider  llm.Provider
	repairer  *repair.Repairer
	validator *validate.Validator
	cache     cache.Cache
	logger    *slog.Logger

	model         string
	maxTokens     int
	maxInputChars int
	retryAttempts uint
	retryDelay    time.Duration
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	if opts.Validator == nil {
		opts.Validator = validate.NewValidator(validate.DefaultConfig())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = model.DefaultConfig().Detection.MaxInputChars
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &Pipeline{
		provider:      opts.Provider,
		repairer:      repair.NewRepairer(),
		validator:     opts.Validator,
		cache:         opts.Cache,
		logger:        opts.Logger,
		model:         opts.Model,
		maxTokens:     opts.MaxTokens,
		maxInputChars: opts.MaxInputChars,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
	}
}

// NewFromConfig wires a pipeline from the application config
func NewFromConfig(cfg *model.Config, provider llm.Provider, logger *slog.Logger) *Pipeline {
	return New(Options{
		Provider:      provider,
		Validator:     validate.NewValidator(validate.ConfigFromModel(cfg.Detection)),
		Cache:         cache.New(cfg.Cache),
		Logger:        logger,
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxInputChars: cfg.Detection.MaxInputChars,
	})
}

// Detection is a detection result together with how it was obtained
type Detection struct {
	Result   model.DetectionResult
	Outcomes []model.ValidationOutcome
	Repair   repair.Outcome
}

// ProviderName returns the configured service name, or "" when none is set
func (p *Pipeline) ProviderName() string {
	if p.provider == nil {
		return ""
	}
	return p.provider.Name()
}

// DetectCorrections returns the validated corrections for text. Empty text
// yields an empty result. Malformed service output yields an empty result,
// not an error; only service failures are returned as errors.
func (p *Pipeline) DetectCorrections(ctx context.Context, text string) (model.DetectionResult, error) {
	d, err := p.Detect(ctx, text)
	if err != nil {
		return model.DetectionResult{}, err
	}
	return d.Result, nil
}

// Detect is DetectCorrections with validation outcomes and repair details
func (p *Pipeline) Detect(ctx context.Context, text string) (*Detection, error) {
	if strings.TrimSpace(text) == "" {
		return &Detection{Result: model.EmptyResult(text), Outcomes: []model.ValidationOutcome{}}, nil
	}
	if p.provider == nil {
		return nil, ErrNoProvider
	}

	key := cache.CacheKey(p.provider.Name()+"/"+p.model, text)
	if cached, ok := cache.GetResult(p.cache, key); ok {
		cached.Provenance.Cached = true
		p.logger.Debug("detection cache hit", "key", key)
		return &Detection{Result: cached, Outcomes: []model.ValidationOutcome{}, Repair: repair.Outcome{Step: repair.Step(cached.Provenance.Repair)}}, nil
	}

	submitted, truncated := Truncate(text, p.maxInputChars)
	if truncated {
		p.logger.Info("text truncated before submission", "runes", len([]rune(text)), "limit", p.maxInputChars)
	}

	resp, err := p.callWithRetry(ctx, llm.DetectRequest{
		Text:      submitted,
		Model:     p.model,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("detect corrections: %w", err)
	}
	if resp.Truncated {
		p.logger.Warn("service output hit its length limit", "provider", p.provider.Name(), "model", resp.Model)
	}

	// Offsets refer to the submitted prefix, which is also a prefix of text
	result, repaired := p.repairer.Repair(repair.RawResponse(resp.Raw), text)
	if repaired.Repaired() {
		p.logger.Warn("service output needed repair", "step", repaired.Step, "dropped", repaired.Dropped, "error", repaired.Err)
	}

	accepted, outcomes := p.validator.Validate(text, result)
	for _, o := range outcomes {
		if !o.Accepted {
			p.logger.Debug("correction rejected", "id", o.Correction.ID, "original", o.Correction.Original, "reason", o.Reason)
		}
	}
	result.Corrections = accepted
	result.FormattingChanges = p.validator.ValidateFormatting(text, result.FormattingChanges)

	result.Provenance = model.Provenance{
		ModelUsed:  resp.Model,
		Provider:   p.provider.Name(),
		Cost:       llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens),
		TokensUsed: resp.TokensUsed(),
		Truncated:  truncated,
		Repair:     string(repaired.Step),
		Rejected:   len(outcomes) - len(accepted),
	}

	p.logger.Info("detection complete",
		"provider", result.Provenance.Provider,
		"model", result.Provenance.ModelUsed,
		"proposed", len(outcomes),
		"accepted", len(accepted),
		"cost", result.Provenance.Cost,
	)

	if err := cache.PutResult(p.cache, key, result); err != nil {
		p.logger.Warn("failed to cache detection result", "error", err)
	}

	return &Detection{Result: result, Outcomes: outcomes, Repair: repaired}, nil
}

// Truncate cuts text to at most limit runes; a non-positive limit disables it
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]), true
}
