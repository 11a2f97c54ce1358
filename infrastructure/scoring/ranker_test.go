package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
)

func bidWithResponse(id string, score float64) domain.Bid {
	return domain.Bid{
		ID:                id,
		CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: score}},
	}
}

func bidIDs(bids []domain.Bid) []string {
	ids := make([]string, len(bids))
	for i, b := range bids {
		ids[i] = b.ID
	}
	return ids
}

func newTestRanker(t *testing.T) *Ranker {
	t.Helper()
	r, err := NewRanker(newTestAggregator(t, false))
	require.NoError(t, err)
	return r
}

func TestNewRanker_RequiresAggregator(t *testing.T) {
	_, err := NewRanker(nil)
	require.ErrorIs(t, err, ErrNilAggregator)
}

func TestRanker_Rank(t *testing.T) {
	criteria := []domain.EvaluationCriterion{bidderCriterion("c1", 100)}

	tests := []struct {
		name      string
		bids      []domain.Bid
		wantOrder []string
	}{
		{
			name:      "orders by descending total",
			bids:      []domain.Bid{bidWithResponse("low", 10), bidWithResponse("high", 90), bidWithResponse("mid", 50)},
			wantOrder: []string{"high", "mid", "low"},
		},
		{
			name:      "ties keep submission order",
			bids:      []domain.Bid{bidWithResponse("A", 90), bidWithResponse("B", 62), bidWithResponse("C", 62)},
			wantOrder: []string{"A", "B", "C"},
		},
		{
			name:      "all tied keeps input order",
			bids:      []domain.Bid{bidWithResponse("x", 5), bidWithResponse("y", 5), bidWithResponse("z", 5)},
			wantOrder: []string{"x", "y", "z"},
		},
		{
			name:      "unscored bids sink to the bottom in input order",
			bids:      []domain.Bid{{ID: "n1"}, bidWithResponse("s", 1), {ID: "n2"}},
			wantOrder: []string{"s", "n1", "n2"},
		},
		{
			name:      "empty input",
			bids:      nil,
			wantOrder: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRanker(t)

			got := r.Rank(tt.bids, criteria)

			assert.Equal(t, tt.wantOrder, bidIDs(got.Bids))
			assert.Len(t, got.Scores, len(tt.bids))
			for _, b := range tt.bids {
				assert.Contains(t, got.Scores, b.ID)
				assert.Equal(t, got.Scores[b.ID], got.Breakdowns[b.ID].Total)
			}
		})
	}
}

// TestRanker_Rank_SpecScenario reproduces the three-bid leaderboard with a
// 90/62/62 split where B was submitted before C.
func TestRanker_Rank_SpecScenario(t *testing.T) {
	criteria := []domain.EvaluationCriterion{bidderCriterion("c1", 40), evaluatorCriterion("e1", 60)}
	mk := func(id string, resp, eval float64) domain.Bid {
		return domain.Bid{
			ID:                id,
			CriteriaResponses: map[string]domain.CriterionResponse{"c1": {Score: resp}},
			Evaluation:        &domain.BidEvaluation{CriteriaScores: map[string]float64{"e1": eval}},
		}
	}
	bids := []domain.Bid{mk("B", 80, 50), mk("A", 90, 90), mk("C", 50, 70)}

	got := newTestRanker(t).Rank(bids, criteria)

	assert.Equal(t, []string{"A", "B", "C"}, bidIDs(got.Bids))
	assert.InDelta(t, 90, got.Scores["A"], 1e-9)
	assert.InDelta(t, 62, got.Scores["B"], 1e-9)
	assert.InDelta(t, 62, got.Scores["C"], 1e-9)
}

func TestRanker_Rank_DoesNotMutateInput(t *testing.T) {
	bids := []domain.Bid{bidWithResponse("a", 1), bidWithResponse("b", 2)}
	newTestRanker(t).Rank(bids, []domain.EvaluationCriterion{bidderCriterion("c1", 100)})
	assert.Equal(t, []string{"a", "b"}, bidIDs(bids))
}

// TestRanker_Properties checks aggregation correctness, stability and
// monotonicity over seeded random bid sets.
func TestRanker_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := newTestRanker(t)
	agg := newTestAggregator(t, false)

	for iter := range 200 {
		criteria := randomCriteria(rng)
		bids := randomBids(rng, criteria)

		first := r.Rank(bids, criteria)
		second := r.Rank(bids, criteria)
		require.Equal(t, bidIDs(first.Bids), bidIDs(second.Bids), "iteration %d: ranking not repeatable", iter)

		for _, b := range bids {
			require.InDelta(t, expectedTotal(b, criteria), first.Scores[b.ID], 1e-9,
				"iteration %d: aggregation mismatch for %s", iter, b.ID)
			require.Equal(t, agg.TotalScore(b, criteria), first.Scores[b.ID])
		}

		position := make(map[string]int, len(bids))
		for i, b := range first.Bids {
			position[b.ID] = i
		}
		inputPos := make(map[string]int, len(bids))
		for i, b := range bids {
			inputPos[b.ID] = i
		}
		for _, x := range bids {
			for _, y := range bids {
				sx, sy := first.Scores[x.ID], first.Scores[y.ID]
				if sx > sy {
					require.Less(t, position[x.ID], position[y.ID], "iteration %d: monotonicity", iter)
				}
				if sx == sy && inputPos[x.ID] < inputPos[y.ID] {
					require.Less(t, position[x.ID], position[y.ID], "iteration %d: stability", iter)
				}
			}
		}
	}
}

func randomCriteria(rng *rand.Rand) []domain.EvaluationCriterion {
	n := 1 + rng.Intn(5)
	out := make([]domain.EvaluationCriterion, n)
	for i := range out {
		c := domain.EvaluationCriterion{ID: string(rune('a' + i)), Weight: float64(rng.Intn(50))}
		if rng.Intn(2) == 0 {
			c.InputType = domain.InputBidder
		} else {
			c.InputType = domain.InputEvaluator
		}
		out[i] = c
	}
	return out
}

func randomBids(rng *rand.Rand, criteria []domain.EvaluationCriterion) []domain.Bid {
	n := rng.Intn(8)
	bids := make([]domain.Bid, n)
	for i := range bids {
		b := domain.Bid{ID: string(rune('A' + i)), CriteriaResponses: map[string]domain.CriterionResponse{}}
		if rng.Intn(3) > 0 {
			b.Evaluation = &domain.BidEvaluation{CriteriaScores: map[string]float64{}}
		}
		for _, c := range criteria {
			// Coarse scores make ties likely.
			score := float64(rng.Intn(5) * 25)
			if rng.Intn(4) == 0 {
				continue
			}
			if c.InputType == domain.InputBidder {
				b.CriteriaResponses[c.ID] = domain.CriterionResponse{Score: score}
			} else if b.Evaluation != nil {
				b.Evaluation.CriteriaScores[c.ID] = score
			}
		}
		bids[i] = b
	}
	return bids
}

func expectedTotal(b domain.Bid, criteria []domain.EvaluationCriterion) float64 {
	var total float64
	for _, c := range criteria {
		if c.InputType == domain.InputBidder {
			total += b.CriteriaResponses[c.ID].Score * c.Weight / 100
		} else if b.Evaluation != nil {
			total += b.Evaluation.CriteriaScores[c.ID] * c.Weight / 100
		}
	}
	return total
}
