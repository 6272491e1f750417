package upstream

import (
	"context"
	"time"
)

// RetryConfig tunes WithRetry.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// WithRetry wraps an operation with fixed-delay retries. It is available as
// a configuration helper but is wired into no gateway call site: no request
// in scope is retried automatically.
func WithRetry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
