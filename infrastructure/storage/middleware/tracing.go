package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware creates middleware that runs every store call inside an
// OpenTelemetry span named "store.<Operation>".
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer("github.com/ahrav/go-tender/storage")

	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			ctx, span := tracer.Start(ctx, "store."+op.Name,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("service.name", serviceName),
					attribute.String("store.operation", op.Name),
					attribute.String("store.key", op.Key),
					attribute.Bool("store.write", op.Write),
				),
			)
			defer span.End()

			err := next(ctx, op)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
