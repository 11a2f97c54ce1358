// Package middleware provides cross-cutting concerns for the evaluation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tender/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It exposes store latency and health, engine operation outcomes, and the
// distribution of computed bid scores.
type PrometheusMetrics struct {
	storeLatency     *prometheus.HistogramVec
	storeOperations  *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	circuitRejected  *prometheus.CounterVec
	outcomes         *prometheus.CounterVec
	bidScores        *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	histograms       *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics with reg. A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Store metrics, fed by the storage middleware.
		storeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Latency of store operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		storeOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Total number of store operations by result.",
			},
			[]string{"operation", "status"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "store_circuit_state",
				Help: "Store circuit breaker state (0 closed, 1 open, 2 half open).",
			},
			[]string{"state"},
		),
		circuitRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_circuit_rejections_total",
				Help: "Store calls rejected by an open circuit breaker.",
			},
			[]string{"operation"},
		),

		// Engine metrics, fed by the outcome observer and the services.
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_outcomes_total",
				Help: "Engine operations by outcome.",
			},
			[]string{"operation", "result", "kind"},
		),
		bidScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tender_bid_total_score",
				Help:    "Distribution of computed bid total scores.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"source"},
		),

		// Catch-all series for metrics without a dedicated vector.
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tender_operations_total",
				Help: "Total number of miscellaneous engine events.",
			},
			[]string{"operation", "unit"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tender_system_state",
				Help: "Current system state values.",
			},
			[]string{"metric", "unit"},
		),
		histograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tender_values",
				Help:    "Distribution of miscellaneous engine values.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric", "unit"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// store latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.storeLatency.WithLabelValues(operation, label(labels, "status")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "store_operations_total":
		pm.storeOperations.WithLabelValues(labels["operation"], label(labels, "status")).Add(value)
	case "store_circuit_rejections_total":
		pm.circuitRejected.WithLabelValues(labels["operation"]).Add(value)
	case "tender_outcomes_total":
		pm.outcomes.WithLabelValues(labels["operation"], label(labels, "result"), label(labels, "kind")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "unit")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "store_circuit_state":
		// One series carries the numeric state; the label is informational.
		pm.circuitState.Reset()
		pm.circuitState.WithLabelValues(label(labels, "state")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, label(labels, "unit")).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "tender_bid_total_score":
		pm.bidScores.WithLabelValues(label(labels, "source")).Observe(value)
	default:
		pm.histograms.WithLabelValues(metric, label(labels, "unit")).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
