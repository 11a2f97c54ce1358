package middleware

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var _ ports.OutcomeSink = (*OutcomeObserver)(nil)

// OutcomeObserver surfaces engine outcomes as structured log lines, an
// OpenTelemetry span per outcome, and the tender_outcomes_total counter.
type OutcomeObserver struct {
	logger  *slog.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewOutcomeObserver creates an observer. A nil logger uses slog.Default;
// a nil metrics collector disables metrics.
func NewOutcomeObserver(logger *slog.Logger, metrics ports.MetricsCollector) *OutcomeObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeObserver{
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/ahrav/go-tender/outcomes"),
	}
}

// Report implements ports.OutcomeSink.
func (o *OutcomeObserver) Report(ctx context.Context, outcome domain.Outcome) {
	kind := ports.KindOf(outcome.Err)
	result := "success"
	if !outcome.Success {
		result = "failure"
	}

	_, span := o.tracer.Start(ctx, "outcome."+outcome.Operation)
	span.SetAttributes(
		attribute.String("tender.id", outcome.TenderID),
		attribute.String("bid.id", outcome.BidID),
		attribute.String("outcome.result", result),
		attribute.String("outcome.kind", string(kind)),
	)
	if outcome.Success {
		span.AddEvent("outcome.succeeded", trace.WithAttributes(
			attribute.String("message", outcome.Message),
		))
		span.SetStatus(codes.Ok, outcome.Message)
	} else {
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
		}
		span.SetStatus(codes.Error, outcome.Message)
	}
	span.End()

	if o.metrics != nil {
		o.metrics.RecordCounter("tender_outcomes_total", 1, map[string]string{
			"operation": outcome.Operation,
			"result":    result,
			"kind":      string(kind),
		})
	}

	attrs := []slog.Attr{
		slog.String("operation", outcome.Operation),
		slog.String("message", outcome.Message),
	}
	if outcome.TenderID != "" {
		attrs = append(attrs, slog.String("tender_id", outcome.TenderID))
	}
	if outcome.BidID != "" {
		attrs = append(attrs, slog.String("bid_id", outcome.BidID))
	}

	switch {
	case outcome.Success:
		o.logger.LogAttrs(ctx, slog.LevelInfo, "operation succeeded", attrs...)
	case kind == ports.KindStorage || kind == ports.KindInternal:
		attrs = append(attrs, slog.String("kind", string(kind)), slog.Any("error", outcome.Err))
		o.logger.LogAttrs(ctx, slog.LevelError, "operation failed", attrs...)
	default:
		// Rejected input and conflicts are expected traffic.
		attrs = append(attrs, slog.String("kind", string(kind)))
		o.logger.LogAttrs(ctx, slog.LevelWarn, "operation rejected", attrs...)
	}
}
