package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// MetricsMiddleware creates middleware that records latency and outcome of
// every store call.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			start := time.Now()
			err := next(ctx, op)

			if collector != nil {
				labels := map[string]string{
					"operation": op.Name,
					"status":    status(ctx, err),
				}
				collector.RecordLatency(op.Name, time.Since(start), labels)
				collector.RecordCounter("store_operations_total", 1, labels)
			}
			return err
		}
	}
}

func status(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
