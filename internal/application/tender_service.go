package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// TenderDraft is a tender as authored by its owner.
type TenderDraft struct {
	ID                     string                         `json:"id"`
	Title                  string                         `json:"title" validate:"required,max=500"`
	OwnerID                string                         `json:"owner_id" validate:"required"`
	ShortlistAutomatically bool                           `json:"shortlist_automatically"`
	ShortlistThreshold     *float64                       `json:"shortlist_threshold"`
	Criteria               []domain.EvaluationCriterion   `json:"evaluation_criteria" validate:"required,min=1"`
	RequiredSpecifications []domain.RequiredSpecification `json:"required_specifications"`
}

// BidDraft is a bidder's submission.
type BidDraft struct {
	TenderID          string                              `json:"tender_id" validate:"required"`
	BidderID          string                              `json:"bidder_id" validate:"required"`
	Amount            decimal.Decimal                     `json:"amount"`
	Specifications    map[string]any                      `json:"specifications"`
	Proposal          string                              `json:"proposal" validate:"max=100000"`
	CriteriaResponses map[string]domain.CriterionResponse `json:"criteria_responses"`
}

// TenderService authors tenders and accepts bids.
type TenderService struct {
	store            ports.Store
	defaultThreshold float64
	options
}

// NewTenderService creates a TenderService. defaultThreshold applies to
// drafts without a threshold and must lie in [0,100].
func NewTenderService(store ports.Store, defaultThreshold float64, opts ...Option) (*TenderService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := scoring.ValidateThreshold(defaultThreshold); err != nil {
		return nil, fmt.Errorf("default threshold: %w", err)
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &TenderService{store: store, defaultThreshold: defaultThreshold, options: o}, nil
}

// CreateTender validates a draft and stores it as an open tender. Criteria
// weights must sum to 100; a rubric that does not is refused with an
// *domain.InconsistentWeightError.
func (s *TenderService) CreateTender(ctx context.Context, draft TenderDraft) (domain.Tender, error) {
	const op = domain.OpCreateTender

	if err := validate.Struct(draft); err != nil {
		return domain.Tender{}, s.fail(ctx, op, draft.ID, "", domain.Invalid("tender", "%v", err))
	}

	tender := domain.Tender{
		ID:                     draft.ID,
		Title:                  draft.Title,
		OwnerID:                draft.OwnerID,
		Status:                 domain.TenderOpen,
		ShortlistAutomatically: draft.ShortlistAutomatically,
		ShortlistThreshold:     s.defaultThreshold,
		Criteria:               draft.Criteria,
		RequiredSpecifications: draft.RequiredSpecifications,
		CreatedAt:              s.timestamp(),
	}
	if tender.ID == "" {
		tender.ID = uuid.NewString()
	}
	if draft.ShortlistThreshold != nil {
		tender.ShortlistThreshold = *draft.ShortlistThreshold
	}

	if err := scoring.ValidateThreshold(tender.ShortlistThreshold); err != nil {
		return domain.Tender{}, s.fail(ctx, op, tender.ID, "", err)
	}
	if err := domain.CheckWeights(tender.ID, tender.Criteria); err != nil {
		return domain.Tender{}, s.fail(ctx, op, tender.ID, "", err)
	}
	if err := checkSpecifications(tender.RequiredSpecifications); err != nil {
		return domain.Tender{}, s.fail(ctx, op, tender.ID, "", err)
	}

	if err := s.store.InsertTender(ctx, tender); err != nil {
		return domain.Tender{}, s.fail(ctx, op, tender.ID, "", fmt.Errorf("save tender: %w", err))
	}
	s.report(ctx, domain.Succeeded(op, tender.ID, "", "tender created"))
	return tender, nil
}

func checkSpecifications(specs []domain.RequiredSpecification) error {
	verr := domain.NewValidationError("required_specifications")
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		switch {
		case spec.ID == "":
			verr.AddError(fmt.Sprintf("specification %d has an empty id", i))
		case seen[spec.ID]:
			verr.AddError(fmt.Sprintf("duplicate specification id %q", spec.ID))
		}
		seen[spec.ID] = true
		switch spec.Type {
		case domain.SpecNumber, domain.SpecText, domain.SpecBoolean:
		default:
			verr.AddError(fmt.Sprintf("specification %q has unknown type %q", spec.ID, spec.Type))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// GetTender returns a tender by id.
func (s *TenderService) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	return s.store.GetTender(ctx, tenderID)
}

// SubmitBid validates a draft against its tender and stores it as a
// submitted bid. A bidder may bid once per tender; a second submission
// fails with domain.ErrDuplicateBid. Awarded and closed tenders accept no
// bids.
func (s *TenderService) SubmitBid(ctx context.Context, draft BidDraft) (domain.Bid, error) {
	const op = domain.OpSubmitBid

	if err := validate.Struct(draft); err != nil {
		return domain.Bid{}, s.fail(ctx, op, draft.TenderID, "", domain.Invalid("bid", "%v", err))
	}

	tender, err := s.store.GetTender(ctx, draft.TenderID)
	if err != nil {
		return domain.Bid{}, s.fail(ctx, op, draft.TenderID, "", fmt.Errorf("load tender: %w", err))
	}
	switch {
	case tender.IsAwarded():
		return domain.Bid{}, s.fail(ctx, op, tender.ID, "", domain.ErrAlreadyAwarded)
	case tender.Status == domain.TenderClosed:
		return domain.Bid{}, s.fail(ctx, op, tender.ID, "", domain.Invalid("bid", "tender %s is closed", tender.ID))
	}

	bid := domain.Bid{
		ID:                uuid.NewString(),
		TenderID:          tender.ID,
		BidderID:          draft.BidderID,
		Amount:            draft.Amount,
		Specifications:    draft.Specifications,
		Proposal:          draft.Proposal,
		CriteriaResponses: draft.CriteriaResponses,
		Status:            domain.StatusSubmitted,
		SubmittedAt:       s.timestamp(),
	}
	if err := validateBidSubmission(tender, bid); err != nil {
		return domain.Bid{}, s.fail(ctx, op, tender.ID, "", err)
	}

	if err := s.store.InsertBid(ctx, bid); err != nil {
		if !errors.Is(err, domain.ErrDuplicateBid) {
			err = fmt.Errorf("save bid: %w", err)
		}
		return domain.Bid{}, s.fail(ctx, op, tender.ID, bid.ID, err)
	}
	s.observeScore("self_assessment", s.aggregator.TotalScore(bid, tender.Criteria))
	s.report(ctx, domain.Succeeded(op, tender.ID, bid.ID, "bid submitted"))
	return bid, nil
}
