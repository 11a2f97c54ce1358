package domain

// ScoreBreakdown splits a bid's total score into its two sources.
type ScoreBreakdown struct {
	Bidder    float64 `json:"bidder"`
	Evaluator float64 `json:"evaluator"`
	Total     float64 `json:"total"`
}

// Aggregator combines a bid's bidder responses and evaluator scores into a
// single total using the criteria weights.
// Implementations must be pure: identical inputs give identical outputs and
// nothing is written anywhere.
type Aggregator interface {
	// Breakdown scores the bid against criteria, reporting both portions.
	// Missing or non-finite scores contribute 0. A bid without an evaluation
	// contributes 0 for every evaluator criterion.
	Breakdown(bid Bid, criteria []EvaluationCriterion) ScoreBreakdown

	// TotalScore returns Breakdown(bid, criteria).Total.
	TotalScore(bid Bid, criteria []EvaluationCriterion) float64
}
