package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus is the lifecycle state of a bid as seen by the evaluation engine.
type BidStatus string

const (
	StatusSubmitted   BidStatus = "submitted"
	StatusUnderReview BidStatus = "under_review"
	StatusShortlisted BidStatus = "shortlisted"
	StatusSelected    BidStatus = "selected"
	StatusRejected    BidStatus = "rejected"
)

// Valid reports whether s is a known bid status.
func (s BidStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusShortlisted, StatusSelected, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s BidStatus) IsTerminal() bool { return s == StatusSelected || s == StatusRejected }

// CriterionResponse is a bidder's self-assessment for one bidder criterion.
type CriterionResponse struct {
	Score         float64 `json:"score" bson:"score"`
	Justification string  `json:"justification" bson:"justification"`
}

// BidderProfile is the display information of the organization behind a bid.
type BidderProfile struct {
	FullName     string `json:"full_name,omitempty" bson:"full_name,omitempty"`
	Organization string `json:"organization,omitempty" bson:"organization,omitempty"`
}

// Bid is a bidder's response to a tender.
type Bid struct {
	ID       string          `json:"id"`
	TenderID string          `json:"tender_id"`
	BidderID string          `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	// Specifications maps a required specification id to the submitted value.
	Specifications map[string]any `json:"specifications,omitempty"`
	Proposal       string         `json:"proposal"`
	// CriteriaResponses holds scores for bidder-input criteria only.
	CriteriaResponses map[string]CriterionResponse `json:"criteria_responses,omitempty"`
	Status            BidStatus                    `json:"status"`
	SubmittedAt       time.Time                    `json:"submitted_at"`

	// Evaluation is the bid's single evaluator judgement, nil until evaluated.
	Evaluation *BidEvaluation `json:"evaluation,omitempty"`
	// Bidder is optional profile data joined in by the store.
	Bidder *BidderProfile `json:"bidder,omitempty"`
}

// BidEvaluation is the evaluator's judgement of a bid. There is at most one
// per bid; resubmission overwrites it.
type BidEvaluation struct {
	ID          string `json:"id"`
	BidID       string `json:"bid_id"`
	EvaluatorID string `json:"evaluator_id,omitempty"`
	// CriteriaScores holds scores for evaluator-input criteria only.
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Comments       string             `json:"comments"`
	// TotalScore caches the combined bidder and evaluator score computed
	// when the evaluation was last written.
	TotalScore float64   `json:"total_score"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ShortlistedIDs returns the ids of bids currently in the shortlisted state,
// in input order.
func ShortlistedIDs(bids []Bid) []string {
	var ids []string
	for _, b := range bids {
		if b.Status == StatusShortlisted {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
