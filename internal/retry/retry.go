// Package retry runs an operation with exponential backoff between failed
// attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/connectorstore/internal/metrics"
)

// Policy configures a retried operation.
type Policy struct {
	// Name labels log lines and metrics.
	Name string
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the wait after the first failure. The wait after failure
	// n (0-based) is BaseDelay * 2^n.
	BaseDelay time.Duration
	Logger    *slog.Logger
}

// Default search policy: 3 attempts starting at one second.
func Default(name string) Policy {
	return Policy{Name: name, Attempts: 3, BaseDelay: time.Second}
}

// Delay returns the wait after the given 0-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do invokes op until it succeeds or the policy's attempts are exhausted,
// returning the last error in the latter case. Waits between attempts are
// cut short when ctx is done.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		metrics.RetryAttempts.WithLabelValues(p.Name).Inc()
		p.logger().Warn("retry: attempt failed",
			slog.String("operation", p.Name),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()))

		if attempt == attempts-1 {
			break
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// DoOr behaves like Do but returns fallback instead of an error once the
// attempts are exhausted.
func DoOr[T any](ctx context.Context, p Policy, fallback T, op func(context.Context) (T, error)) T {
	v, err := Do(ctx, p, op)
	if err != nil {
		p.logger().Error("retry: giving up, using fallback",
			slog.String("operation", p.Name),
			slog.String("error", err.Error()))
		return fallback
	}
	return v
}
