package domain

import (
	"slices"
	"time"
)

// Award is the complete set of writes that finalizing a tender performs.
// Stores must apply it as one atomic unit.
type Award struct {
	TenderID     string    `json:"tender_id"`
	WinningBidID string    `json:"winning_bid_id"`
	RejectedIDs  []string  `json:"rejected_bid_ids"`
	AwardedAt    time.Time `json:"awarded_at"`
	// Reapplied is set when the tender already carried this winner and the
	// award is being replayed.
	Reapplied bool `json:"reapplied"`
}

// PlanAward validates a finalization request against the tender and its
// current bids and computes the resulting Award. It performs no writes.
//
// The selected bid must belong to the tender, appear in shortlistedIDs and be
// in the shortlisted state. Every other bid of the tender is rejected
// whatever its prior status. A tender already awarded to selectedID yields a
// replay of the same award; one awarded to a different bid is refused with
// ErrAlreadyAwarded.
func PlanAward(tender Tender, bids []Bid, selectedID string, shortlistedIDs []string, now time.Time) (Award, error) {
	if selectedID == "" {
		return Award{}, Invalid("award", "selected bid id is required")
	}

	if tender.WinningBidID != "" {
		if tender.WinningBidID != selectedID {
			return Award{}, ErrAlreadyAwarded
		}
		return Award{
			TenderID:     tender.ID,
			WinningBidID: selectedID,
			RejectedIDs:  otherBidIDs(bids, selectedID),
			AwardedAt:    now,
			Reapplied:    true,
		}, nil
	}

	if !slices.Contains(shortlistedIDs, selectedID) {
		return Award{}, Invalid("award", "bid %s is not shortlisted", selectedID)
	}

	idx := slices.IndexFunc(bids, func(b Bid) bool { return b.ID == selectedID })
	if idx < 0 {
		return Award{}, Invalid("award", "bid %s does not belong to tender %s", selectedID, tender.ID)
	}
	if winner := bids[idx]; winner.Status != StatusShortlisted {
		return Award{}, NewStateTransitionError(winner.ID, winner.Status, StatusSelected)
	}

	return Award{
		TenderID:     tender.ID,
		WinningBidID: selectedID,
		RejectedIDs:  otherBidIDs(bids, selectedID),
		AwardedAt:    now,
	}, nil
}

func otherBidIDs(bids []Bid, winnerID string) []string {
	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		if b.ID != winnerID {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
