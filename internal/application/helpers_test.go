package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/infrastructure/storage/memory"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

var fixedNow = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

// owner owns every tender built from testutils.TenderFixture.
const owner = "gov-1"

func clock() time.Time { return fixedNow }

// env is a memory store behind a fault injector plus a recording sink.
type env struct {
	store   *testutils.FaultyStore
	sink    *testutils.RecordingSink
	metrics *testutils.RecordingMetrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		store:   testutils.NewFaultyStore(memory.New()),
		sink:    &testutils.RecordingSink{},
		metrics: testutils.NewRecordingMetrics(),
	}
}

func (e *env) opts() []Option {
	return []Option{WithOutcomeSink(e.sink), WithMetrics(e.metrics), WithClock(clock)}
}

func (e *env) tender(t *testing.T, tender domain.Tender) {
	t.Helper()
	require.NoError(t, e.store.InsertTender(context.Background(), tender))
}

// bid inserts a fixture bid and moves it to status.
func (e *env) bid(t *testing.T, id, tenderID string, selfScore float64, seq int, status domain.BidStatus) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.InsertBid(ctx, testutils.BidFixture(id, tenderID, "bidder-"+id, selfScore, seq)))
	if status != domain.StatusSubmitted {
		require.NoError(t, e.store.UpdateBidStatus(ctx, id, domain.StatusSubmitted, status))
	}
}

func (e *env) status(t *testing.T, bidID string) domain.BidStatus {
	t.Helper()
	b, err := e.store.GetBid(context.Background(), bidID)
	require.NoError(t, err)
	return b.Status
}

// snapshot captures every observable record of a tender.
func snapshot(t *testing.T, s ports.Store, tenderID string) (domain.Tender, []domain.Bid) {
	t.Helper()
	ctx := context.Background()
	tender, err := s.GetTender(ctx, tenderID)
	require.NoError(t, err)
	bids, err := s.ListBids(ctx, tenderID)
	require.NoError(t, err)
	return tender, bids
}

// interleavedStore runs between once, right after the first successful
// GetTender or UpsertEvaluation named by after, to stage a concurrent writer
// between a service's read and its write.
type interleavedStore struct {
	ports.Store
	after   string
	between func()
	once    sync.Once
}

func (s *interleavedStore) fire(op string, err error) {
	if err == nil && op == s.after {
		s.once.Do(s.between)
	}
}

func (s *interleavedStore) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	t, err := s.Store.GetTender(ctx, tenderID)
	s.fire("GetTender", err)
	return t, err
}

func (s *interleavedStore) UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error {
	err := s.Store.UpsertEvaluation(ctx, ev)
	s.fire("UpsertEvaluation", err)
	return err
}

// finalizeBetween returns a callback that awards tender t-1 to winner
// through its own service on the unwrapped store.
func (e *env) finalizeBetween(t *testing.T, winner string) func() {
	t.Helper()
	awards, err := NewAwardService(e.store, WithClock(clock))
	require.NoError(t, err)
	return func() {
		_, err := awards.Finalize(context.Background(), owner, "t-1", winner, nil)
		require.NoError(t, err)
	}
}

func unavailable(op string) error {
	return ports.NewStorageError(op, "", ports.ErrStoreUnavailable)
}
