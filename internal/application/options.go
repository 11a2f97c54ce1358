// Package application wires the pure scoring engine to the store and the
// outcome sink. Each service validates its input, reads what it needs,
// decides with the engine, and writes at most one logical change.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// ErrNilStore is returned by constructors given a nil store.
var ErrNilStore = errors.New("store cannot be nil")

// Option configures a service.
type Option func(*options)

type options struct {
	aggregator domain.Aggregator
	sink       ports.OutcomeSink
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	now        func() time.Time
}

// WithAggregator replaces the default unclamped WeightedSumAggregator.
func WithAggregator(a domain.Aggregator) Option { return func(o *options) { o.aggregator = a } }

// WithOutcomeSink reports every operation outcome to sink.
func WithOutcomeSink(sink ports.OutcomeSink) Option { return func(o *options) { o.sink = sink } }

// WithMetrics records score distributions to m.
func WithMetrics(m ports.MetricsCollector) Option { return func(o *options) { o.metrics = m } }

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock overrides time.Now for timestamps written by the services.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func buildOptions(opts []Option) (options, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.aggregator == nil {
		agg, err := scoring.NewWeightedSumAggregator(scoring.DefaultAggregatorConfig())
		if err != nil {
			return options{}, err
		}
		o.aggregator = agg
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

// report sends an outcome to the sink, if one is configured.
func (o *options) report(ctx context.Context, outcome domain.Outcome) {
	if o.sink != nil {
		o.sink.Report(ctx, outcome)
	}
}

// fail reports a failed outcome for op and returns err unchanged.
func (o *options) fail(ctx context.Context, op, tenderID, bidID string, err error) error {
	o.report(ctx, domain.Failed(op, tenderID, bidID, err))
	return err
}

func (o *options) observeScore(source string, total float64) {
	if o.metrics != nil {
		o.metrics.RecordHistogram("tender_bid_total_score", total, map[string]string{"source": source})
	}
}

func (o *options) timestamp() time.Time { return o.now().UTC() }
