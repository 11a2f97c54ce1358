package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// ShortlistService performs the owner's manual shortlist actions and edits
// a tender's automatic shortlist policy.
type ShortlistService struct {
	store ports.Store
	options
}

// NewShortlistService creates a ShortlistService.
func NewShortlistService(store ports.Store, opts ...Option) (*ShortlistService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ShortlistService{store: store, options: o}, nil
}

// Shortlist promotes a bid to shortlisted regardless of its score. Only
// the tender's owner may do this.
func (s *ShortlistService) Shortlist(ctx context.Context, actorID, bidID string) (domain.Bid, error) {
	return s.transition(ctx, domain.OpShortlist, actorID, bidID, domain.StatusShortlisted, "bid shortlisted")
}

// RemoveShortlist demotes a shortlisted bid back to submitted. Only the
// tender's owner may do this.
func (s *ShortlistService) RemoveShortlist(ctx context.Context, actorID, bidID string) (domain.Bid, error) {
	return s.transition(ctx, domain.OpRemoveShortlist, actorID, bidID, domain.StatusSubmitted, "bid removed from shortlist")
}

// transition checks ownership and the bid state machine before any write.
// Awarded tenders are frozen. The write is conditional on the status read
// here, so a finalize that lands in between wins and this move fails with
// domain.ErrInvalidTransition.
func (s *ShortlistService) transition(
	ctx context.Context,
	op, actorID, bidID string,
	to domain.BidStatus,
	msg string,
) (domain.Bid, error) {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return domain.Bid{}, s.fail(ctx, op, "", bidID, fmt.Errorf("load bid: %w", err))
	}
	tender, err := s.store.GetTender(ctx, bid.TenderID)
	if err != nil {
		return domain.Bid{}, s.fail(ctx, op, bid.TenderID, bid.ID, fmt.Errorf("load tender: %w", err))
	}
	if err := tender.CheckOwner(actorID); err != nil {
		return domain.Bid{}, s.fail(ctx, op, tender.ID, bid.ID, err)
	}
	if err := domain.CheckTransition(bid.ID, bid.Status, to); err != nil {
		return domain.Bid{}, s.fail(ctx, op, bid.TenderID, bid.ID, err)
	}
	if tender.IsAwarded() {
		return domain.Bid{}, s.fail(ctx, op, tender.ID, bid.ID, domain.ErrAlreadyAwarded)
	}

	if err := s.store.UpdateBidStatus(ctx, bid.ID, bid.Status, to); err != nil {
		return domain.Bid{}, s.fail(ctx, op, bid.TenderID, bid.ID, fmt.Errorf("update status: %w", err))
	}
	bid.Status = to
	s.report(ctx, domain.Succeeded(op, bid.TenderID, bid.ID, msg))
	return bid, nil
}

// UpdateSettings validates and stores a tender's automatic shortlist
// policy. An out-of-range threshold or a caller other than the owner is
// rejected without writing.
func (s *ShortlistService) UpdateSettings(
	ctx context.Context,
	actorID, tenderID string,
	policy domain.ShortlistPolicy,
) error {
	const op = domain.OpUpdateSettings

	if err := scoring.ValidateThreshold(policy.Threshold); err != nil {
		return s.fail(ctx, op, tenderID, "", err)
	}
	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		return s.fail(ctx, op, tenderID, "", fmt.Errorf("load tender: %w", err))
	}
	if err := tender.CheckOwner(actorID); err != nil {
		return s.fail(ctx, op, tenderID, "", err)
	}
	if err := s.store.UpdateShortlistPolicy(ctx, tenderID, policy); err != nil {
		return s.fail(ctx, op, tenderID, "", fmt.Errorf("update shortlist policy: %w", err))
	}
	s.report(ctx, domain.Succeeded(op, tenderID, "",
		fmt.Sprintf("automatic shortlisting %s at threshold %.2f", enabledWord(policy.Enabled), policy.Threshold)))
	return nil
}

func enabledWord(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
