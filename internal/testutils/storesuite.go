package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// StoreFactory returns a fresh, empty store. The factory registers its own
// cleanup.
type StoreFactory func(t *testing.T) ports.Store

// RunStoreSuite runs the behavioral contract every ports.Store
// implementation must satisfy.
func RunStoreSuite(t *testing.T, newStore StoreFactory) {
	t.Helper()

	t.Run("tender round trip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		tender := TenderFixture("t-1")
		require.NoError(t, s.InsertTender(ctx, tender))

		got, err := s.GetTender(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, tender.ID, got.ID)
		assert.Equal(t, tender.Title, got.Title)
		assert.Equal(t, tender.Status, got.Status)
		assert.True(t, got.ShortlistAutomatically)
		assert.Equal(t, 70.0, got.ShortlistThreshold)
		assert.Equal(t, tender.Criteria, got.Criteria)
		assert.Equal(t, tender.RequiredSpecifications, got.RequiredSpecifications)

		criteria, err := s.ListCriteria(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, tender.Criteria, criteria)

		ids, err := s.ListTenderIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t-1"}, ids)
	})

	t.Run("missing tender", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.GetTender(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.ListCriteria(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = s.UpdateShortlistPolicy(ctx, "nope", domain.ShortlistPolicy{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("shortlist policy update", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))

		require.NoError(t, s.UpdateShortlistPolicy(ctx, "t-1", domain.ShortlistPolicy{Enabled: false, Threshold: 82.5}))

		got, err := s.GetTender(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ShortlistPolicy{Enabled: false, Threshold: 82.5}, got.Policy())
	})

	t.Run("bids listed in submission order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-2")))

		require.NoError(t, s.InsertBid(ctx, BidFixture("b-late", "t-1", "bidder-1", 50, 3)))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-early", "t-1", "bidder-2", 60, 1)))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-mid", "t-1", "bidder-3", 70, 2)))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-other", "t-2", "bidder-1", 70, 0)))

		bids, err := s.ListBids(ctx, "t-1")
		require.NoError(t, err)
		require.Len(t, bids, 3)
		assert.Equal(t, "b-early", bids[0].ID)
		assert.Equal(t, "b-mid", bids[1].ID)
		assert.Equal(t, "b-late", bids[2].ID)

		first := bids[0]
		assert.Equal(t, domain.StatusSubmitted, first.Status)
		assert.Equal(t, "bidder-2", first.BidderID)
		assert.True(t, first.Amount.Equal(BidFixture("", "", "", 0, 0).Amount))
		assert.Equal(t, domain.CriterionResponse{Score: 60, Justification: "Committed schedule"}, first.CriteriaResponses["c1"])
		assert.Equal(t, 250.0, first.Specifications["capacity"])
		assert.True(t, first.SubmittedAt.Equal(BaseTime.Add(time.Minute)))
		assert.Nil(t, first.Evaluation)

		empty, err := s.ListBids(ctx, "t-unknown")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("duplicate bid rejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-1", "t-1", "bidder-1", 50, 0)))

		err := s.InsertBid(ctx, BidFixture("b-2", "t-1", "bidder-1", 50, 1))
		assert.ErrorIs(t, err, domain.ErrDuplicateBid)

		bids, err := s.ListBids(ctx, "t-1")
		require.NoError(t, err)
		assert.Len(t, bids, 1)
	})

	t.Run("bid on missing tender", func(t *testing.T) {
		s := newStore(t)
		err := s.InsertBid(context.Background(), BidFixture("b-1", "t-x", "bidder-1", 50, 0))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("status update and lookup", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-1", "t-1", "bidder-1", 50, 0)))

		require.NoError(t, s.UpdateBidStatus(ctx, "b-1", domain.StatusSubmitted, domain.StatusShortlisted))
		got, err := s.GetBid(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusShortlisted, got.Status)

		assert.ErrorIs(t, s.UpdateBidStatus(ctx, "b-x", domain.StatusSubmitted, domain.StatusShortlisted), domain.ErrNotFound)
		_, err = s.GetBid(ctx, "b-x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("status update refuses a stale expected status", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-1", "t-1", "bidder-1", 50, 0)))
		require.NoError(t, s.UpdateBidStatus(ctx, "b-1", domain.StatusSubmitted, domain.StatusShortlisted))

		err := s.UpdateBidStatus(ctx, "b-1", domain.StatusSubmitted, domain.StatusShortlisted)
		var transErr *domain.StateTransitionError
		require.ErrorAs(t, err, &transErr)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusShortlisted, transErr.From, "error names the stored status")

		got, err := s.GetBid(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusShortlisted, got.Status)
	})

	t.Run("status update cannot revive an awarded bid", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b1", "t-1", "bidder-1", 50, 0)))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b2", "t-1", "bidder-2", 50, 1)))
		require.NoError(t, s.UpdateBidStatus(ctx, "b2", domain.StatusSubmitted, domain.StatusShortlisted))
		require.NoError(t, s.ApplyAward(ctx, domain.Award{
			TenderID: "t-1", WinningBidID: "b2", RejectedIDs: []string{"b1"}, AwardedAt: BaseTime,
		}))

		// Writers that read the bids before the award still hold the old statuses.
		err := s.UpdateBidStatus(ctx, "b1", domain.StatusSubmitted, domain.StatusShortlisted)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		err = s.UpdateBidStatus(ctx, "b2", domain.StatusShortlisted, domain.StatusSubmitted)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		b1, err := s.GetBid(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, b1.Status)
		b2, err := s.GetBid(ctx, "b2")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSelected, b2.Status)
	})

	t.Run("evaluation upsert keeps one row and last write wins", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b-1", "t-1", "bidder-1", 80, 0)))

		first := EvaluationFixture("ev-1", "b-1", 50)
		first.TotalScore = 62
		require.NoError(t, s.UpsertEvaluation(ctx, first))

		second := EvaluationFixture("ev-2", "b-1", 90)
		second.TotalScore = 86
		second.Comments = "Revised after clarification."
		require.NoError(t, s.UpsertEvaluation(ctx, second))

		got, err := s.GetBid(ctx, "b-1")
		require.NoError(t, err)
		require.NotNil(t, got.Evaluation)
		assert.Equal(t, "ev-1", got.Evaluation.ID, "overwrite keeps the original row")
		assert.Equal(t, map[string]float64{"c2": 90}, got.Evaluation.CriteriaScores)
		assert.Equal(t, 86.0, got.Evaluation.TotalScore)
		assert.Equal(t, "Revised after clarification.", got.Evaluation.Comments)

		err = s.UpsertEvaluation(ctx, EvaluationFixture("ev-3", "b-missing", 10))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("award applies every write", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-2")))
		for i, id := range []string{"b1", "b2", "b5"} {
			require.NoError(t, s.InsertBid(ctx, BidFixture(id, "t-1", "bidder-"+id, 50, i)))
		}
		require.NoError(t, s.InsertBid(ctx, BidFixture("other", "t-2", "bidder-x", 50, 0)))
		require.NoError(t, s.UpdateBidStatus(ctx, "b2", domain.StatusSubmitted, domain.StatusShortlisted))

		award := domain.Award{TenderID: "t-1", WinningBidID: "b2", RejectedIDs: []string{"b1", "b5"}, AwardedAt: BaseTime}
		require.NoError(t, s.ApplyAward(ctx, award))
		// Replaying the same award is harmless.
		require.NoError(t, s.ApplyAward(ctx, award))

		tender, err := s.GetTender(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "b2", tender.WinningBidID)
		assert.Equal(t, domain.TenderAwarded, tender.Status)

		bids, err := s.ListBids(ctx, "t-1")
		require.NoError(t, err)
		statuses := map[string]domain.BidStatus{}
		for _, b := range bids {
			statuses[b.ID] = b.Status
		}
		assert.Equal(t, map[string]domain.BidStatus{
			"b1": domain.StatusRejected,
			"b2": domain.StatusSelected,
			"b5": domain.StatusRejected,
		}, statuses)

		other, err := s.GetBid(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, other.Status, "bids of other tenders are untouched")
	})

	t.Run("failed award leaves no trace", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b1", "t-1", "bidder-1", 50, 0)))

		err := s.ApplyAward(ctx, domain.Award{TenderID: "t-1", WinningBidID: "ghost", AwardedAt: BaseTime})
		require.Error(t, err)

		tender, err := s.GetTender(ctx, "t-1")
		require.NoError(t, err)
		assert.Empty(t, tender.WinningBidID)
		assert.Equal(t, domain.TenderOpen, tender.Status)

		b, err := s.GetBid(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, b.Status)
	})

	t.Run("award to a different winner is refused", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b1", "t-1", "bidder-1", 50, 0)))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b2", "t-1", "bidder-2", 50, 1)))
		require.NoError(t, s.ApplyAward(ctx, domain.Award{TenderID: "t-1", WinningBidID: "b1", AwardedAt: BaseTime}))

		err := s.ApplyAward(ctx, domain.Award{TenderID: "t-1", WinningBidID: "b2", AwardedAt: BaseTime})
		require.ErrorIs(t, err, domain.ErrAlreadyAwarded)

		tender, err := s.GetTender(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "b1", tender.WinningBidID)
		b2, err := s.GetBid(ctx, "b2")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, b2.Status)
	})

	t.Run("profiles and roles", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertTender(ctx, TenderFixture("t-1")))
		require.NoError(t, s.PutProfile(ctx, "bidder-1", domain.RoleBidder,
			domain.BidderProfile{FullName: "Ada Obi", Organization: "Sunworks Ltd"}))
		require.NoError(t, s.InsertBid(ctx, BidFixture("b1", "t-1", "bidder-1", 50, 0)))

		role, err := s.GetRole(ctx, "bidder-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleBidder, role)

		_, err = s.GetRole(ctx, "stranger")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, s.PutProfile(ctx, "bidder-1", domain.RoleBidder,
			domain.BidderProfile{FullName: "Ada Obi", Organization: "Sunworks Group"}))

		b, err := s.GetBid(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, b.Bidder)
		assert.Equal(t, "Sunworks Group", b.Bidder.Organization)
	})
}
