package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tender/internal/domain"
)

func newTestAggregator(t *testing.T, clamp bool) *WeightedSumAggregator {
	t.Helper()
	agg, err := NewWeightedSumAggregator(AggregatorConfig{ClampScores: clamp})
	require.NoError(t, err)
	return agg
}

func bidderCriterion(id string, weight float64) domain.EvaluationCriterion {
	return domain.EvaluationCriterion{ID: id, Name: id, Weight: weight, InputType: domain.InputBidder}
}

func evaluatorCriterion(id string, weight float64) domain.EvaluationCriterion {
	return domain.EvaluationCriterion{ID: id, Name: id, Weight: weight, InputType: domain.InputEvaluator}
}

// TestWeightedSumAggregator_Breakdown covers the weighting rule, the
// missing-score fallback and the pass-through of malformed weights.
func TestWeightedSumAggregator_Breakdown(t *testing.T) {
	tests := []struct {
		name     string
		clamp    bool
		criteria []domain.EvaluationCriterion
		bid      domain.Bid
		want     domain.ScoreBreakdown
	}{
		{
			name:     "combines bidder and evaluator portions",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 40), evaluatorCriterion("c2", 60)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 80}},
				Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"c2": 50}},
			},
			want: domain.ScoreBreakdown{Bidder: 32, Evaluator: 30, Total: 62},
		},
		{
			name:     "no evaluation yields bidder share only",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 40), evaluatorCriterion("c2", 60)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 100}},
			},
			want: domain.ScoreBreakdown{Bidder: 40, Evaluator: 0, Total: 40},
		},
		{
			name:     "missing response counts as zero",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 50), bidderCriterion("c2", 50)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c2": {Score: 60}},
			},
			want: domain.ScoreBreakdown{Bidder: 30, Total: 30},
		},
		{
			name:     "missing evaluator score counts as zero",
			criteria: []domain.EvaluationCriterion{evaluatorCriterion("e1", 50), evaluatorCriterion("e2", 50)},
			bid: domain.Bid{
				Evaluation: &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": 90}},
			},
			want: domain.ScoreBreakdown{Evaluator: 45, Total: 45},
		},
		{
			name:     "non-finite scores count as zero",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 50), evaluatorCriterion("e1", 50)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: math.NaN()}},
				Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": math.Inf(1)}},
			},
			want: domain.ScoreBreakdown{},
		},
		{
			name:     "weights summing above 100 pass through",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 80), evaluatorCriterion("e1", 80)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 100}},
				Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": 100}},
			},
			want: domain.ScoreBreakdown{Bidder: 80, Evaluator: 80, Total: 160},
		},
		{
			name:     "weights summing below 100 pass through",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 10)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 100}},
			},
			want: domain.ScoreBreakdown{Bidder: 10, Total: 10},
		},
		{
			name:     "out of range scores propagate linearly when unclamped",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 50), evaluatorCriterion("e1", 50)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 150}},
				Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": -20}},
			},
			want: domain.ScoreBreakdown{Bidder: 75, Evaluator: -10, Total: 65},
		},
		{
			name:     "out of range scores are bounded when clamped",
			clamp:    true,
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 50), evaluatorCriterion("e1", 50)},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 150}},
				Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": -20}},
			},
			want: domain.ScoreBreakdown{Bidder: 50, Evaluator: 0, Total: 50},
		},
		{
			name:     "evaluator scores for bidder criteria are ignored",
			criteria: []domain.EvaluationCriterion{bidderCriterion("c1", 100)},
			bid: domain.Bid{
				Evaluation: &domain.BidEvaluation{CriteriaScores: map[string]float64{"c1": 100}},
			},
			want: domain.ScoreBreakdown{},
		},
		{
			name:     "unknown input type contributes nothing",
			criteria: []domain.EvaluationCriterion{{ID: "x", Weight: 100, InputType: "committee"}},
			bid: domain.Bid{
				CriteriaResponses: map[string]domain.CriterionResponse{"x": {Score: 100}},
			},
			want: domain.ScoreBreakdown{},
		},
		{
			name: "empty criteria score zero",
			bid:  domain.Bid{CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 100}}},
			want: domain.ScoreBreakdown{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(t, tt.clamp)

			got := agg.Breakdown(tt.bid, tt.criteria)

			assert.InDelta(t, tt.want.Bidder, got.Bidder, 1e-9, "bidder portion")
			assert.InDelta(t, tt.want.Evaluator, got.Evaluator, 1e-9, "evaluator portion")
			assert.InDelta(t, tt.want.Total, got.Total, 1e-9, "total")
			assert.InDelta(t, got.Total, agg.TotalScore(tt.bid, tt.criteria), 1e-12,
				"TotalScore must agree with Breakdown")
		})
	}
}

// TestWeightedSumAggregator_Deterministic checks that repeated scoring of the
// same input yields identical totals and leaves the bid untouched.
func TestWeightedSumAggregator_Deterministic(t *testing.T) {
	agg := newTestAggregator(t, false)
	criteria := []domain.EvaluationCriterion{bidderCriterion("c1", 33.3), evaluatorCriterion("e1", 66.7)}
	bid := domain.Bid{
		CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 71.5}},
		Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": 88.25}},
	}

	first := agg.TotalScore(bid, criteria)
	for range 10 {
		assert.Equal(t, first, agg.TotalScore(bid, criteria))
	}
	assert.Equal(t, 71.5, bid.CriteriaResponses["c1"].Score)
	assert.Equal(t, 88.25, bid.Evaluation.CriteriaScores["e1"])
}

// TestWeightedSumAggregator_LastWriteReplay replays aggregation after either
// of two racing evaluation writes and checks each replay is self-consistent.
func TestWeightedSumAggregator_LastWriteReplay(t *testing.T) {
	agg := newTestAggregator(t, false)
	criteria := []domain.EvaluationCriterion{bidderCriterion("c1", 40), evaluatorCriterion("e1", 60)}
	base := domain.Bid{CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: 80}}}

	writeA := &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": 50}}
	writeB := &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": 90}}

	for _, landed := range []*domain.BidEvaluation{writeA, writeB} {
		bid := base
		bid.Evaluation = landed
		total := agg.TotalScore(bid, criteria)
		landed.TotalScore = total

		want := 80*0.4 + landed.CriteriaScores["e1"]*0.6
		assert.InDelta(t, want, landed.TotalScore, 1e-9)
	}
}

func TestWeightedSumAggregator_UnmarshalParameters(t *testing.T) {
	agg := newTestAggregator(t, false)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("clamp_scores: true"), &node))
	require.NoError(t, agg.UnmarshalParameters(*node.Content[0]))
	assert.True(t, agg.Config().ClampScores)

	require.NoError(t, yaml.Unmarshal([]byte("clamp_scores: [1, 2]"), &node))
	err := agg.UnmarshalParameters(*node.Content[0])
	require.Error(t, err)
	assert.True(t, agg.Config().ClampScores, "config must be unchanged on error")
}

func TestDefaultAggregatorConfig(t *testing.T) {
	assert.False(t, DefaultAggregatorConfig().ClampScores)
}
