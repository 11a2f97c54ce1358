package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awardFixture() (Tender, []Bid) {
	tender := Tender{ID: "t-1", Status: TenderOpen}
	bids := []Bid{
		{ID: "b1", TenderID: "t-1", Status: StatusShortlisted},
		{ID: "b2", TenderID: "t-1", Status: StatusShortlisted},
		{ID: "b3", TenderID: "t-1", Status: StatusSubmitted},
		{ID: "b5", TenderID: "t-1", Status: StatusUnderReview},
	}
	return tender, bids
}

func TestPlanAward(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("selects winner and rejects every other bid", func(t *testing.T) {
		tender, bids := awardFixture()

		award, err := PlanAward(tender, bids, "b2", []string{"b1", "b2"}, now)

		require.NoError(t, err)
		assert.Equal(t, "t-1", award.TenderID)
		assert.Equal(t, "b2", award.WinningBidID)
		assert.Equal(t, []string{"b1", "b3", "b5"}, award.RejectedIDs)
		assert.Equal(t, now, award.AwardedAt)
		assert.False(t, award.Reapplied)
	})

	t.Run("single bid tender rejects nothing", func(t *testing.T) {
		tender := Tender{ID: "t-2"}
		bids := []Bid{{ID: "only", Status: StatusShortlisted}}

		award, err := PlanAward(tender, bids, "only", []string{"only"}, now)

		require.NoError(t, err)
		assert.Empty(t, award.RejectedIDs)
	})

	t.Run("selection outside shortlist is rejected", func(t *testing.T) {
		tender, bids := awardFixture()

		_, err := PlanAward(tender, bids, "b5", []string{"b1", "b2"}, now)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("empty selection is rejected", func(t *testing.T) {
		tender, bids := awardFixture()

		_, err := PlanAward(tender, bids, "", []string{"b1"}, now)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("bid from another tender is rejected", func(t *testing.T) {
		tender, bids := awardFixture()

		_, err := PlanAward(tender, bids, "foreign", []string{"foreign"}, now)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("stale shortlist with non-shortlisted winner is a transition error", func(t *testing.T) {
		tender, bids := awardFixture()

		_, err := PlanAward(tender, bids, "b3", []string{"b3"}, now)

		var terr *StateTransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "b3", terr.BidID)
		assert.Equal(t, StatusSubmitted, terr.From)
		assert.Equal(t, StatusSelected, terr.To)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("same winner replays", func(t *testing.T) {
		tender, bids := awardFixture()
		tender.WinningBidID = "b2"
		tender.Status = TenderAwarded
		bids[1].Status = StatusSelected
		for _, i := range []int{0, 2, 3} {
			bids[i].Status = StatusRejected
		}

		award, err := PlanAward(tender, bids, "b2", nil, now)

		require.NoError(t, err)
		assert.True(t, award.Reapplied)
		assert.Equal(t, "b2", award.WinningBidID)
		assert.Equal(t, []string{"b1", "b3", "b5"}, award.RejectedIDs)
	})

	t.Run("different winner is refused", func(t *testing.T) {
		tender, bids := awardFixture()
		tender.WinningBidID = "b2"

		_, err := PlanAward(tender, bids, "b1", []string{"b1"}, now)

		assert.ErrorIs(t, err, ErrAlreadyAwarded)
	})
}

// TestPlanAward_SingleWinner checks that for every valid plan exactly one bid
// is selected and every other bid is rejected.
func TestPlanAward_SingleWinner(t *testing.T) {
	tender, bids := awardFixture()
	for _, winner := range []string{"b1", "b2"} {
		award, err := PlanAward(tender, bids, winner, ShortlistedIDs(bids), time.Now())
		require.NoError(t, err)

		seen := map[string]int{award.WinningBidID: 1}
		for _, id := range award.RejectedIDs {
			seen[id]++
		}
		assert.Len(t, seen, len(bids))
		for id, n := range seen {
			assert.Equal(t, 1, n, "bid %s planned more than once", id)
		}
	}
}
