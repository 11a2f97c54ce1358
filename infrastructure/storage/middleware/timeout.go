package middleware

import (
	"context"
	"time"
)

// TimeoutMiddleware creates middleware that bounds every store call.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, op)
		}
	}
}
