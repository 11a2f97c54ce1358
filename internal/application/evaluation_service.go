package application

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// EvaluationRequest is an evaluator's judgement of one bid.
type EvaluationRequest struct {
	BidID       string             `json:"bid_id" validate:"required"`
	EvaluatorID string             `json:"evaluator_id"`
	Scores      map[string]float64 `json:"criteria_scores"`
	Comments    string             `json:"comments" validate:"max=10000"`
}

// EvaluationResult reports what Submit stored and decided.
type EvaluationResult struct {
	Evaluation domain.BidEvaluation `json:"evaluation"`
	// Status is the bid status after the automatic shortlist rule ran.
	Status domain.BidStatus `json:"status"`
	// Shortlisted is set when this submission promoted the bid.
	Shortlisted bool `json:"shortlisted"`
}

// EvaluationService records evaluator judgements and applies the automatic
// shortlist rule.
type EvaluationService struct {
	store ports.Store
	options
}

// NewEvaluationService creates an EvaluationService.
func NewEvaluationService(store ports.Store, opts ...Option) (*EvaluationService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &EvaluationService{store: store, options: o}, nil
}

// Submit validates the scores, recomputes the bid's total with the new
// scores, upserts the bid's single evaluation row and then lets the
// automatic shortlist rule promote the bid. A resubmission overwrites the
// previous scores and total. Bids of an awarded tender cannot be evaluated.
func (s *EvaluationService) Submit(ctx context.Context, req EvaluationRequest) (EvaluationResult, error) {
	const op = domain.OpSubmitEvaluation

	if err := validate.Struct(req); err != nil {
		return EvaluationResult{}, s.fail(ctx, op, "", req.BidID, domain.Invalid("evaluation", "%v", err))
	}

	bid, err := s.store.GetBid(ctx, req.BidID)
	if err != nil {
		return EvaluationResult{}, s.fail(ctx, op, "", req.BidID, fmt.Errorf("load bid: %w", err))
	}
	tender, err := s.store.GetTender(ctx, bid.TenderID)
	if err != nil {
		return EvaluationResult{}, s.fail(ctx, op, bid.TenderID, bid.ID, fmt.Errorf("load tender: %w", err))
	}
	if tender.IsAwarded() || bid.Status.IsTerminal() {
		return EvaluationResult{}, s.fail(ctx, op, tender.ID, bid.ID, domain.ErrAlreadyAwarded)
	}
	if err := validateEvaluationScores(tender.Criteria, req.Scores); err != nil {
		return EvaluationResult{}, s.fail(ctx, op, tender.ID, bid.ID, err)
	}

	ev := domain.BidEvaluation{
		ID:             uuid.NewString(),
		BidID:          bid.ID,
		EvaluatorID:    req.EvaluatorID,
		CriteriaScores: maps.Clone(req.Scores),
		Comments:       req.Comments,
		UpdatedAt:      s.timestamp(),
	}
	if bid.Evaluation != nil && bid.Evaluation.ID != "" {
		ev.ID = bid.Evaluation.ID
	}
	scored := bid
	scored.Evaluation = &ev
	ev.TotalScore = s.aggregator.TotalScore(scored, tender.Criteria)

	if err := s.store.UpsertEvaluation(ctx, ev); err != nil {
		return EvaluationResult{}, s.fail(ctx, op, tender.ID, bid.ID, fmt.Errorf("save evaluation: %w", err))
	}
	s.observeScore("evaluation", ev.TotalScore)

	result := EvaluationResult{Evaluation: ev, Status: bid.Status}
	next, promote := scoring.AutoShortlistDecision(bid.Status, ev.TotalScore, tender.Policy())
	if promote {
		err := s.store.UpdateBidStatus(ctx, bid.ID, bid.Status, next)
		var moved *domain.StateTransitionError
		switch {
		case errors.As(err, &moved):
			// Another writer changed the status since it was read; automation
			// only promotes, so it leaves that status alone.
			result.Status = moved.From
			s.logger.DebugContext(ctx, "auto-shortlist skipped",
				"bid_id", bid.ID, "status", moved.From)
		case err != nil:
			return EvaluationResult{}, s.fail(ctx, domain.OpAutoShortlist, tender.ID, bid.ID,
				fmt.Errorf("auto-shortlist: %w", err))
		default:
			result.Status = next
			result.Shortlisted = true
			s.report(ctx, domain.Succeeded(domain.OpAutoShortlist, tender.ID, bid.ID,
				fmt.Sprintf("bid shortlisted automatically with score %.2f", ev.TotalScore)))
		}
	}

	s.logger.DebugContext(ctx, "evaluation stored",
		"bid_id", bid.ID, "total_score", ev.TotalScore, "shortlisted", result.Shortlisted)
	s.report(ctx, domain.Succeeded(op, tender.ID, bid.ID,
		fmt.Sprintf("evaluation saved with total score %.2f", ev.TotalScore)))
	return result, nil
}
