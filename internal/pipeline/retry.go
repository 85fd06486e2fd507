package pipeline

import (
	"context"

	"github.com/avast/retry-go/v4"

	"github.com/ppiankov/majalla/internal/llm"
)

// callWithRetry calls the provider, retrying transient failures with
// exponential backoff. Permanent failures return immediately.
func (p *Pipeline) callWithRetry(ctx context.Context, req llm.DetectRequest) (*llm.DetectResponse, error) {
	return retry.DoWithData(
		func() (*llm.DetectResponse, error) {
			return p.provider.Detect(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(p.retryAttempts),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(llm.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("correction service call failed, retrying",
				"provider", p.provider.Name(),
				"attempt", n+1,
				"error", err,
			)
		}),
	)
}
