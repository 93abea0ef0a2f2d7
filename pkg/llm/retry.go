package llm

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/logger"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// retryingClient wraps a Client with a bounded retry policy for retryable
// failures. After the attempts are exhausted the last error propagates as a
// non-retryable failure, which terminates the session.
type retryingClient struct {
	inner Client
	cfg   config.RetryConfig
}

// WithRetry wraps a client with the given retry policy.
func WithRetry(inner Client, cfg config.RetryConfig) Client {
	return &retryingClient{inner: inner, cfg: cfg}
}

func (c *retryingClient) Complete(ctx context.Context, conversation *llmtypes.Conversation, specs []tooltypes.ToolSpec) (llmtypes.ModelResponse, error) {
	var response llmtypes.ModelResponse

	initialDelay := time.Duration(c.cfg.InitialDelay) * time.Millisecond
	maxDelay := time.Duration(c.cfg.MaxDelay) * time.Millisecond

	var delayType retry.DelayTypeFunc
	switch c.cfg.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	default:
		delayType = retry.BackOffDelay
	}

	err := retry.Do(
		func() error {
			var apiErr error
			response, apiErr = c.inner.Complete(ctx, conversation, specs)
			return apiErr
		},
		retry.RetryIf(llmtypes.IsRetryable),
		retry.Attempts(uint(c.cfg.Attempts)),
		retry.Delay(initialDelay),
		retry.DelayType(delayType),
		retry.MaxDelay(maxDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", c.cfg.Attempts).
				Warn("retrying model API call")
		}),
	)
	if err != nil {
		return response, errors.Wrapf(err, "model call failed after up to %d attempts", c.cfg.Attempts)
	}

	return response, nil
}
