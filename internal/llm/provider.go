package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoResponse is returned when the service answers without any content
	ErrNoResponse = errors.New("no response from correction service")

	// ErrMissingAPIKey is returned when a hosted provider has no key configured
	ErrMissingAPIKey = errors.New("API key is required")
)

// Provider is an external text-correction service
type Provider interface {
	// Name returns the provider name
	Name() string

	// Detect asks the service for corrections to req.Text. The response is
	// raw structured output; callers must repair and validate it.
	Detect(ctx context.Context, req DetectRequest) (*DetectResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// DetectRequest is one correction request
type DetectRequest struct {
	// Text is the (already truncated) page text to correct
	Text string

	// Prompt overrides the default correction prompt
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// DetectResponse is the service's raw answer
type DetectResponse struct {
	// Raw is the unparsed structured output
	Raw string

	// Model is the model that generated the response
	Model string

	InputTokens  int
	OutputTokens int

	// Truncated is set when the service stopped at its output limit
	Truncated bool
}

// TokensUsed returns input plus output tokens
func (r *DetectResponse) TokensUsed() int {
	return r.InputTokens + r.OutputTokens
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   120, // Long pages take a while to rewrite
		MaxTokens: 8000,
	}
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 8000
}

func (c Config) model(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// APIError is a non-success HTTP answer from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable returns true for errors that indicate transient failures:
// rate limiting, 5xx answers, timeouts and dropped connections
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if code, ok := openAIStatus(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
