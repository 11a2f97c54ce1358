package scoring

import (
	"cmp"
	"slices"

	"github.com/ahrav/go-tender/internal/domain"
)

// Ranking is the leaderboard of a bid set.
type Ranking struct {
	// Bids is ordered by total score, highest first. Bids with equal totals
	// keep their input order.
	Bids []domain.Bid

	// Scores maps bid id to total score so consumers need not recompute.
	Scores map[string]float64

	// Breakdowns maps bid id to the bidder/evaluator split of its score.
	Breakdowns map[string]domain.ScoreBreakdown
}

// Ranker orders bids by aggregated score.
type Ranker struct {
	aggregator domain.Aggregator
}

// NewRanker creates a Ranker scoring bids with aggregator.
func NewRanker(aggregator domain.Aggregator) (*Ranker, error) {
	if aggregator == nil {
		return nil, ErrNilAggregator
	}
	return &Ranker{aggregator: aggregator}, nil
}

// Rank scores every bid once and sorts them descending by total. The sort is
// stable so the rank-1 bid and the row order are deterministic across
// repeated calls on the same input. The input slice is not modified.
func (r *Ranker) Rank(bids []domain.Bid, criteria []domain.EvaluationCriterion) Ranking {
	type scored struct {
		bid       domain.Bid
		breakdown domain.ScoreBreakdown
	}

	rows := make([]scored, len(bids))
	for i, b := range bids {
		rows[i] = scored{bid: b, breakdown: r.aggregator.Breakdown(b, criteria)}
	}

	slices.SortStableFunc(rows, func(x, y scored) int {
		return cmp.Compare(y.breakdown.Total, x.breakdown.Total)
	})

	out := Ranking{
		Bids:       make([]domain.Bid, len(rows)),
		Scores:     make(map[string]float64, len(rows)),
		Breakdowns: make(map[string]domain.ScoreBreakdown, len(rows)),
	}
	for i, row := range rows {
		out.Bids[i] = row.bid
		out.Scores[row.bid.ID] = row.breakdown.Total
		out.Breakdowns[row.bid.ID] = row.breakdown
	}
	return out
}
