package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tender/internal/ports"
)

// RateLimitMiddleware creates middleware that paces store calls with a token
// bucket. The limit parameter sets calls per second, while burst allows
// temporary spikes above the sustained rate. A call that cannot get a token
// before its context ends fails with ports.ErrRateLimited.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			if err := limiter.Wait(ctx); err != nil {
				return ports.NewStorageError(op.Name, op.Key, errors.Join(ports.ErrRateLimited, err))
			}
			return next(ctx, op)
		}
	}
}
