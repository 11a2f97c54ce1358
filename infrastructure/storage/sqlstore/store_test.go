package sqlstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	s := New(db, DriverSQLite)
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func TestStore_SQLite_Contract(t *testing.T) {
	testutils.RunStoreSuite(t, func(t *testing.T) ports.Store { return newSQLiteStore(t) })
}

func TestStore_Postgres_Contract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	testutils.RunStoreSuite(t, func(t *testing.T) ports.Store {
		ctx := context.Background()
		db, err := Open(ctx, DriverPostgres, dsn)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `TRUNCATE profiles, bid_evaluations, bids, tenders`)
		require.NoError(t, err)
		s := New(db, DriverPostgres)
		t.Cleanup(func() { _ = s.Close(ctx) })
		return s
	})
}

// TestStore_LegacyRows loads rows written by older clients: bare-number
// responses, a non-list rubric and malformed score blobs.
func TestStore_LegacyRows(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	db := s.DB()

	_, err := db.ExecContext(ctx, `INSERT INTO tenders (id,title,owner_id,status,shortlist_automatically,
		shortlist_threshold,evaluation_criteria,required_specifications,created_at)
		VALUES ('t-old','Legacy','gov-1','open',1,70,'{"not":"a list"}','null',0)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO bids (id,tender_id,bidder_id,amount,specifications,proposal,
		criteria_responses,status,submitted_at)
		VALUES ('b-old','t-old','bidder-1','not-a-number','[]','', '{"c1": 75, "c2": {"score": "high"}, "c3": null}','submitted',1)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO bid_evaluations (id,bid_id,criteria_scores,updated_at)
		VALUES ('ev-old','b-old','{"e1": 40, "e2": "n/a"}',1)`)
	require.NoError(t, err)

	criteria, err := s.ListCriteria(ctx, "t-old")
	require.NoError(t, err)
	assert.Empty(t, criteria)

	tender, err := s.GetTender(ctx, "t-old")
	require.NoError(t, err)
	assert.Empty(t, tender.RequiredSpecifications)
	assert.True(t, tender.ShortlistAutomatically)

	bid, err := s.GetBid(ctx, "b-old")
	require.NoError(t, err)
	assert.True(t, bid.Amount.IsZero())
	assert.Empty(t, bid.Specifications)
	assert.Equal(t, map[string]domain.CriterionResponse{
		"c1": {Score: 75},
		"c2": {},
		"c3": {},
	}, bid.CriteriaResponses)
	require.NotNil(t, bid.Evaluation)
	assert.Equal(t, map[string]float64{"e1": 40}, bid.Evaluation.CriteriaScores)
	assert.Nil(t, bid.Bidder)
}

func TestStore_DuplicateTenderIsConflict(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.InsertTender(ctx, testutils.TenderFixture("t-1")))

	err := s.InsertTender(ctx, testutils.TenderFixture("t-1"))

	var se *ports.StorageError
	require.ErrorAs(t, err, &se)
	assert.True(t, errors.Is(err, ports.ErrConflict))
}

func TestStore_CanceledContext(t *testing.T) {
	s := newSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListBids(ctx, "t-1")
	require.Error(t, err)
	assert.True(t, ports.IsStorageError(err))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	assert.EqualError(t, err, "unsupported driver: oracle")
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(context.DeadlineExceeded), ports.ErrTimeout)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classify(plain))

	err := wrap("GetBid", "b-1", context.DeadlineExceeded)
	var se *ports.StorageError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsRetryable())

	assert.NoError(t, wrap("GetBid", "b-1", nil))
}
