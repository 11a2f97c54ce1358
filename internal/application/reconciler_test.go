package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

// staleEnv seeds two tenders. t-1 has one evaluation with a correct cached
// total and one with a stale cache; t-2 has one stale evaluation.
func staleEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := newEnv(t)
	e.tender(t, testutils.TenderFixture("t-1"))
	e.tender(t, testutils.TenderFixture("t-2"))
	e.bid(t, "b1", "t-1", 80, 0, domain.StatusSubmitted)
	e.bid(t, "b2", "t-1", 80, 1, domain.StatusSubmitted)
	e.bid(t, "b3", "t-1", 80, 2, domain.StatusSubmitted)
	e.bid(t, "x1", "t-2", 50, 0, domain.StatusSubmitted)

	good := testutils.EvaluationFixture("ev-1", "b1", 50)
	good.TotalScore = 62
	stale := testutils.EvaluationFixture("ev-2", "b2", 50)
	stale.TotalScore = 10
	other := testutils.EvaluationFixture("ev-3", "x1", 100)
	other.TotalScore = 0
	for _, ev := range []domain.BidEvaluation{good, stale, other} {
		require.NoError(t, e.store.UpsertEvaluation(ctx, ev))
	}
	return e
}

func TestScoreReconciler_Reconcile(t *testing.T) {
	e := staleEnv(t)
	r, err := NewScoreReconciler(e.store, 2, e.opts()...)
	require.NoError(t, err)
	ctx := context.Background()

	report, err := r.Reconcile(ctx)

	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Tenders: 2, Checked: 3, Rewritten: 2}, report)

	b2, err := e.store.GetBid(ctx, "b2")
	require.NoError(t, err)
	assert.InDelta(t, 62, b2.Evaluation.TotalScore, 1e-9)
	assert.Equal(t, "ev-2", b2.Evaluation.ID)
	x1, err := e.store.GetBid(ctx, "x1")
	require.NoError(t, err)
	assert.InDelta(t, 80, x1.Evaluation.TotalScore, 1e-9)

	second, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Rewritten, "a second pass finds nothing stale")
	assert.True(t, e.sink.Last().Success)
}

func TestScoreReconciler_FollowsAggregatorConfig(t *testing.T) {
	e := newEnv(t)
	e.tender(t, testutils.TenderFixture("t-1"))
	e.bid(t, "b1", "t-1", 80, 0, domain.StatusSubmitted)
	ev := testutils.EvaluationFixture("ev-1", "b1", 150)
	ev.TotalScore = 122
	require.NoError(t, e.store.UpsertEvaluation(context.Background(), ev))

	agg, err := scoring.NewWeightedSumAggregator(scoring.AggregatorConfig{ClampScores: true})
	require.NoError(t, err)
	r, err := NewScoreReconciler(e.store, 1, WithAggregator(agg))
	require.NoError(t, err)

	checked, rewritten, err := r.ReconcileTender(context.Background(), "t-1")

	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 1, rewritten)
	b1, err := e.store.GetBid(context.Background(), "b1")
	require.NoError(t, err)
	assert.InDelta(t, 92, b1.Evaluation.TotalScore, 1e-9)
}

func TestScoreReconciler_PartialFailure(t *testing.T) {
	e := staleEnv(t)
	e.store.FailNext("UpsertEvaluation", unavailable("UpsertEvaluation"))
	r, err := NewScoreReconciler(e.store, 1, e.opts()...)
	require.NoError(t, err)

	report, err := r.Reconcile(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.Len(t, report.Failed, 1, "the other tender is still reconciled")
	assert.Equal(t, 1, report.Rewritten)
	assert.False(t, e.sink.Last().Success)
}

func TestScoreReconciler_ListFailure(t *testing.T) {
	e := newEnv(t)
	e.store.FailNext("ListTenderIDs", unavailable("ListTenderIDs"))
	r, err := NewScoreReconciler(e.store, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, r.concurrency)

	_, err = r.Reconcile(context.Background())
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
}
