package middleware

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// RetryMiddleware creates middleware that retries transient store failures
// with exponential backoff. Only errors carrying a *ports.StorageError whose
// IsRetryable reports true are retried; domain errors such as
// domain.ErrNotFound fail immediately. Every store write is idempotent, so
// writes are retried as well.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	r := &retrier{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			return r.do(ctx, op, next)
		}
	}
}

type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r *retrier) do(ctx context.Context, op Operation, next Invoker) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err := next(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op.Name, r.maxRetries+1, lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var se *ports.StorageError
	return errors.As(err, &se) && se.IsRetryable()
}

func (r *retrier) calculateDelay(attempt int) time.Duration {
	// Exponential backoff with jitter.
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Add jitter (±25%)
	// #nosec G404 - Using weak RNG is acceptable for jitter calculation
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}
