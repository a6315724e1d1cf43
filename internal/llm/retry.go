package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

// RetryGenerator retries transient failures of the wrapped Generator with
// exponential backoff. Permanent failures return immediately.
type RetryGenerator struct {
	next       Generator
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func NewRetryGenerator(next Generator, maxRetries int, logger *zap.Logger) *RetryGenerator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryGenerator{
		next:       next,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
		logger: logging.OrNop(logger),
	}
}

func (r *RetryGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	op := func() (string, error) {
		text, err := r.next.Generate(ctx, prompt)
		if err != nil && !Retryable(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	return backoff.RetryNotifyWithData(op, b, func(err error, wait time.Duration) {
		r.logger.Warn("generation failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
}
