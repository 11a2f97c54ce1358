package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// LeaderboardRow is one ranked bid.
type LeaderboardRow struct {
	// Rank is the 1-based row position. Tied bids get distinct ranks in
	// submission order.
	Rank           int        `json:"rank"`
	Bid            domain.Bid `json:"bid"`
	TotalScore     float64    `json:"total_score"`
	BidderScore    float64    `json:"bidder_score"`
	EvaluatorScore float64    `json:"evaluator_score"`
	AboveThreshold bool       `json:"above_threshold"`
}

// Leaderboard is a tender's ranked bid list.
type Leaderboard struct {
	TenderID     string                 `json:"tender_id"`
	Policy       domain.ShortlistPolicy `json:"policy"`
	WinningBidID string                 `json:"winning_bid_id,omitempty"`
	Rows         []LeaderboardRow       `json:"rows"`
	// Scores maps bid id to total score.
	Scores map[string]float64 `json:"scores"`
	// WeightWarning is set when the rubric does not sum to 100. Scores are
	// still computed from the weights as given.
	WeightWarning string `json:"weight_warning,omitempty"`
}

// LeaderboardService ranks a tender's bids.
type LeaderboardService struct {
	store  ports.Store
	ranker *scoring.Ranker
	options
}

// NewLeaderboardService creates a LeaderboardService.
func NewLeaderboardService(store ports.Store, opts ...Option) (*LeaderboardService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	ranker, err := scoring.NewRanker(o.aggregator)
	if err != nil {
		return nil, err
	}
	return &LeaderboardService{store: store, ranker: ranker, options: o}, nil
}

// Leaderboard loads the tender, its criteria and its bids concurrently and
// ranks the bids by total score, highest first.
func (s *LeaderboardService) Leaderboard(ctx context.Context, tenderID string) (Leaderboard, error) {
	var (
		tender   domain.Tender
		criteria []domain.EvaluationCriterion
		bids     []domain.Bid
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tender, err = s.store.GetTender(gctx, tenderID)
		if err != nil {
			return fmt.Errorf("load tender: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		criteria, err = s.store.ListCriteria(gctx, tenderID)
		if err != nil {
			return fmt.Errorf("load criteria: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bids, err = s.store.ListBids(gctx, tenderID)
		if err != nil {
			return fmt.Errorf("load bids: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Leaderboard{}, err
	}

	ranking := s.ranker.Rank(bids, criteria)
	policy := tender.Policy()

	board := Leaderboard{
		TenderID:     tender.ID,
		Policy:       policy,
		WinningBidID: tender.WinningBidID,
		Rows:         make([]LeaderboardRow, len(ranking.Bids)),
		Scores:       ranking.Scores,
	}
	for i, b := range ranking.Bids {
		br := ranking.Breakdowns[b.ID]
		board.Rows[i] = LeaderboardRow{
			Rank:           i + 1,
			Bid:            b,
			TotalScore:     br.Total,
			BidderScore:    br.Bidder,
			EvaluatorScore: br.Evaluator,
			AboveThreshold: br.Total >= policy.Threshold,
		}
	}
	if err := domain.CheckWeights(tender.ID, criteria); err != nil {
		board.WeightWarning = err.Error()
	}
	if s.metrics != nil {
		s.metrics.RecordHistogram("leaderboard_size", float64(len(board.Rows)), map[string]string{"unit": "bids"})
	}
	return board, nil
}
