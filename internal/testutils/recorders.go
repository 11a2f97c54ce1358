package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var (
	_ ports.MetricsCollector = (*RecordingMetrics)(nil)
	_ ports.OutcomeSink      = (*RecordingSink)(nil)
)

// RecordingMetrics is an in-memory MetricsCollector for assertions.
type RecordingMetrics struct {
	mu         sync.Mutex
	Latencies  map[string][]time.Duration
	Counters   map[string]float64
	Gauges     map[string]float64
	Histograms map[string][]float64
}

// NewRecordingMetrics returns an empty recorder.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Latencies:  make(map[string][]time.Duration),
		Counters:   make(map[string]float64),
		Gauges:     make(map[string]float64),
		Histograms: make(map[string][]float64),
	}
}

func (m *RecordingMetrics) RecordLatency(operation string, d time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Latencies[operation] = append(m.Latencies[operation], d)
}

func (m *RecordingMetrics) RecordCounter(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[metric] += v
}

func (m *RecordingMetrics) RecordGauge(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gauges[metric] = v
}

func (m *RecordingMetrics) RecordHistogram(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Histograms[metric] = append(m.Histograms[metric], v)
}

// Counter returns the current value of a counter.
func (m *RecordingMetrics) Counter(metric string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counters[metric]
}

// RecordingSink collects every reported outcome.
type RecordingSink struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
}

func (s *RecordingSink) Report(_ context.Context, o domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

// Outcomes returns a copy of the reported outcomes in order.
func (s *RecordingSink) Outcomes() []domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Last returns the most recent outcome, or the zero Outcome.
func (s *RecordingSink) Last() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outcomes) == 0 {
		return domain.Outcome{}
	}
	return s.outcomes[len(s.outcomes)-1]
}
