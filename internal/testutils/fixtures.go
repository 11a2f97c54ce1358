package testutils

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahrav/go-tender/internal/domain"
)

// BaseTime is the submission time of the first fixture bid. Later fixture
// bids are spaced one minute apart so storage order is unambiguous.
var BaseTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// TenderFixture returns an open tender with a 40/60 bidder/evaluator rubric,
// automatic shortlisting enabled at the default threshold and one required
// numeric specification.
func TenderFixture(id string) domain.Tender {
	return domain.Tender{
		ID:                     id,
		Title:                  "Municipal solar array",
		OwnerID:                "gov-1",
		Status:                 domain.TenderOpen,
		ShortlistAutomatically: true,
		ShortlistThreshold:     domain.DefaultShortlistThreshold,
		Criteria: []domain.EvaluationCriterion{
			{ID: "c1", Name: "Delivery timeline", Weight: 40, InputType: domain.InputBidder},
			{ID: "c2", Name: "Technical quality", Weight: 60, InputType: domain.InputEvaluator},
		},
		RequiredSpecifications: []domain.RequiredSpecification{
			{ID: "capacity", Name: "Capacity", Type: domain.SpecNumber, Unit: "kW", Required: true},
		},
		CreatedAt: BaseTime.Add(-24 * time.Hour),
	}
}

// BidFixture returns a submitted bid on tenderID with a self-assessment of
// selfScore for criterion c1. seq orders submission times.
func BidFixture(id, tenderID, bidderID string, selfScore float64, seq int) domain.Bid {
	return domain.Bid{
		ID:             id,
		TenderID:       tenderID,
		BidderID:       bidderID,
		Amount:         decimal.RequireFromString("125000.50"),
		Specifications: map[string]any{"capacity": 250.0},
		Proposal:       "Turnkey installation with local maintenance crew.",
		CriteriaResponses: map[string]domain.CriterionResponse{
			"c1": {Score: selfScore, Justification: "Committed schedule"},
		},
		Status:      domain.StatusSubmitted,
		SubmittedAt: BaseTime.Add(time.Duration(seq) * time.Minute),
	}
}

// EvaluationFixture returns an evaluation of bidID scoring criterion c2.
func EvaluationFixture(id, bidID string, score float64) domain.BidEvaluation {
	return domain.BidEvaluation{
		ID:             id,
		BidID:          bidID,
		EvaluatorID:    "eval-1",
		CriteriaScores: map[string]float64{"c2": score},
		Comments:       "Reviewed on site.",
		UpdatedAt:      BaseTime.Add(time.Hour),
	}
}
