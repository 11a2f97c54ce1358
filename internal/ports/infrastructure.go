package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-tender/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like transitions, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like total scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// OutcomeSink receives the success or failure report of every engine
// operation. How outcomes are surfaced is the sink's concern.
type OutcomeSink interface {
	Report(ctx context.Context, outcome domain.Outcome)
}

// ConfigLoader defines the interface for loading configuration.
// Implementations could read from files, environment variables,
// or a combination of sources.
type ConfigLoader interface {
	// Load reads configuration from the underlying source.
	// It should populate the provided configuration struct.
	// The config parameter should be a pointer to a struct.
	Load(ctx context.Context, config any) error
}
