package resilience

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// RetryConfig bounds a retry loop by attempts and by total elapsed time.
// Delays grow exponentially (x2) from InitialInterval up to MaxInterval.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     16 * time.Second,
		MaxElapsed:      30 * time.Second,
	}
}

// Backoff builds a fresh go-retry backoff for one loop
func (c RetryConfig) Backoff() retry.Backoff {
	initial := c.InitialInterval
	if initial <= 0 {
		initial = time.Second
	}

	b := retry.NewExponential(initial)
	if c.MaxInterval > 0 {
		b = retry.WithCappedDuration(c.MaxInterval, b)
	}
	if c.MaxElapsed > 0 {
		b = retry.WithMaxDuration(c.MaxElapsed, b)
	}
	if c.MaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(c.MaxAttempts-1), b)
	}
	return b
}

// Delay returns the wait before the given retry (1-based), capped at MaxInterval
func (c RetryConfig) Delay(attempt int) time.Duration {
	initial := c.InitialInterval
	if initial <= 0 {
		initial = time.Second
	}

	b := retry.NewExponential(initial)
	if c.MaxInterval > 0 {
		b = retry.WithCappedDuration(c.MaxInterval, b)
	}

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		delay = next
	}
	return delay
}

// Do runs fn until it succeeds, returns a permanent error, or the budget is exhausted.
// ErrCircuitOpen is never retried.
func Do(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, config.Backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCircuitOpen) || IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that retrying cannot fix
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var target *permanentError
	return errors.As(err, &target)
}
