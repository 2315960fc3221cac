package indexer

import (
	"context"
	"errors"
	"time"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// RetryPolicy bounds WithRetry.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// WithRetry runs fn until it succeeds, the context ends, or MaxRetries retries
// have been spent, doubling the delay after each attempt. Only transport
// failures are retried; NotFound and every other error return immediately.
func WithRetry(ctx context.Context, policy RetryPolicy, method string, fn func(context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !errors.Is(err, model.ErrTransport) {
			return err
		}
		observability.RecordRetry(method)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
