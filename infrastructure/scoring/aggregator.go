package scoring

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tender/internal/domain"
)

var _ domain.Aggregator = (*WeightedSumAggregator)(nil)

// WeightedSumAggregator computes a bid's total score as the weighted sum of
// its bidder self-assessment and its evaluator scores:
//
//	total = Σ bidder c: response(c)·w(c)/100 + Σ evaluator c: eval(c)·w(c)/100
//
// A missing or non-finite score contributes 0, and a bid without an
// evaluation contributes 0 for every evaluator criterion. Weights are used
// as given; a rubric that does not sum to 100 is scored faithfully rather
// than rejected.
//
// The aggregator is stateless and safe for concurrent use.
type WeightedSumAggregator struct {
	config AggregatorConfig
}

// AggregatorConfig controls input handling of the aggregator.
type AggregatorConfig struct {
	// ClampScores bounds every input score to [0,100] before weighting.
	// Off by default: out-of-range scores propagate linearly.
	ClampScores bool `yaml:"clamp_scores" json:"clamp_scores"`
}

// DefaultAggregatorConfig returns the unclamped pass-through configuration.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{ClampScores: false}
}

// NewWeightedSumAggregator creates an aggregator with the given configuration.
func NewWeightedSumAggregator(config AggregatorConfig) (*WeightedSumAggregator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &WeightedSumAggregator{config: config}, nil
}

// Config returns the aggregator's configuration.
func (a *WeightedSumAggregator) Config() AggregatorConfig { return a.config }

// TotalScore returns the combined score of bid under criteria.
func (a *WeightedSumAggregator) TotalScore(bid domain.Bid, criteria []domain.EvaluationCriterion) float64 {
	return a.Breakdown(bid, criteria).Total
}

// Breakdown scores bid under criteria and reports the bidder and evaluator
// portions separately.
func (a *WeightedSumAggregator) Breakdown(bid domain.Bid, criteria []domain.EvaluationCriterion) domain.ScoreBreakdown {
	var out domain.ScoreBreakdown

	for _, c := range criteria {
		switch c.InputType {
		case domain.InputBidder:
			var score float64
			if resp, ok := bid.CriteriaResponses[c.ID]; ok {
				score = resp.Score
			}
			out.Bidder += a.contribution(score, c.Weight)
		case domain.InputEvaluator:
			if bid.Evaluation == nil {
				continue
			}
			out.Evaluator += a.contribution(bid.Evaluation.CriteriaScores[c.ID], c.Weight)
		}
	}

	out.Total = out.Bidder + out.Evaluator
	return out
}

// contribution weights a single score. Non-finite scores and weights count
// as zero.
func (a *WeightedSumAggregator) contribution(score, weight float64) float64 {
	score = finiteOrZero(score)
	weight = finiteOrZero(weight)
	if a.config.ClampScores {
		score = clamp(score, MinScore, MaxScore)
	}
	return score * weight / 100
}

// UnmarshalParameters replaces the configuration from YAML. The current
// configuration is kept on error.
func (a *WeightedSumAggregator) UnmarshalParameters(params yaml.Node) error {
	var config AggregatorConfig
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	a.config = config
	return nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
