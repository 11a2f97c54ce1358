package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// scoreEpsilon is the largest cached-total drift treated as equal.
const scoreEpsilon = 1e-9

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Tenders   int      `json:"tenders"`
	Checked   int      `json:"checked"`
	Rewritten int      `json:"rewritten"`
	Failed    []string `json:"failed,omitempty"`
}

// ScoreReconciler replays the aggregator over stored evaluations and
// rewrites total_score caches that no longer match, for example after
// concurrent evaluator writes or a change of the clamp setting.
type ScoreReconciler struct {
	store       ports.Store
	concurrency int
	options
}

// NewScoreReconciler creates a reconciler that processes up to concurrency
// tenders at once. Values below 1 mean 1.
func NewScoreReconciler(store ports.Store, concurrency int, opts ...Option) (*ScoreReconciler, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ScoreReconciler{store: store, concurrency: concurrency, options: o}, nil
}

// Reconcile checks every tender. A failing tender does not stop the pass;
// its id is listed in the report and its error joined into the result.
func (r *ScoreReconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	const op = domain.OpReconcileScores

	ids, err := r.store.ListTenderIDs(ctx)
	if err != nil {
		return ReconcileReport{}, r.fail(ctx, op, "", "", fmt.Errorf("list tenders: %w", err))
	}

	var (
		mu     sync.Mutex
		report = ReconcileReport{Tenders: len(ids)}
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			checked, rewritten, err := r.reconcileTender(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			report.Checked += checked
			report.Rewritten += rewritten
			if err != nil {
				report.Failed = append(report.Failed, id)
				errs = append(errs, fmt.Errorf("tender %s: %w", id, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		r.logger.WarnContext(ctx, "score reconciliation incomplete",
			"tenders", report.Tenders, "failed", len(report.Failed), "error", err)
		return report, r.fail(ctx, op, "", "", err)
	}
	r.report(ctx, domain.Succeeded(op, "", "",
		fmt.Sprintf("checked %d evaluations across %d tenders, rewrote %d", report.Checked, report.Tenders, report.Rewritten)))
	return report, nil
}

// ReconcileTender checks one tender and returns how many evaluations were
// checked and rewritten.
func (r *ScoreReconciler) ReconcileTender(ctx context.Context, tenderID string) (checked, rewritten int, err error) {
	return r.reconcileTender(ctx, tenderID)
}

func (r *ScoreReconciler) reconcileTender(ctx context.Context, tenderID string) (int, int, error) {
	criteria, err := r.store.ListCriteria(ctx, tenderID)
	if err != nil {
		return 0, 0, fmt.Errorf("load criteria: %w", err)
	}
	bids, err := r.store.ListBids(ctx, tenderID)
	if err != nil {
		return 0, 0, fmt.Errorf("load bids: %w", err)
	}

	var checked, rewritten int
	for _, b := range bids {
		if b.Evaluation == nil {
			continue
		}
		checked++
		want := r.aggregator.TotalScore(b, criteria)
		if math.Abs(want-b.Evaluation.TotalScore) <= scoreEpsilon {
			continue
		}

		ev := *b.Evaluation
		ev.TotalScore = want
		if err := r.store.UpsertEvaluation(ctx, ev); err != nil {
			return checked, rewritten, fmt.Errorf("rewrite evaluation of bid %s: %w", b.ID, err)
		}
		rewritten++
		r.logger.DebugContext(ctx, "rewrote stale total score",
			"tender_id", tenderID, "bid_id", b.ID, "was", b.Evaluation.TotalScore, "now", want)
	}
	return checked, rewritten, nil
}
