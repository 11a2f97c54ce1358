package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// AwardService finalizes tenders.
type AwardService struct {
	store ports.Store
	options
}

// NewAwardService creates an AwardService.
func NewAwardService(store ports.Store, opts ...Option) (*AwardService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &AwardService{store: store, options: o}, nil
}

// Finalize awards tenderID to selectedBidID. The selected bid must be in
// shortlistedBidIDs; a nil shortlist is derived from the bids' current
// statuses. The award is planned against a fresh read of the tender and its
// bids and then written as one atomic unit, so on failure nothing changed.
// Finalizing again with the same winner succeeds and rewrites the same end
// state; a different winner fails with domain.ErrAlreadyAwarded. Only the
// tender's owner may finalize.
func (s *AwardService) Finalize(
	ctx context.Context,
	actorID, tenderID, selectedBidID string,
	shortlistedBidIDs []string,
) (domain.Award, error) {
	const op = domain.OpFinalize

	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		return domain.Award{}, s.fail(ctx, op, tenderID, selectedBidID, fmt.Errorf("load tender: %w", err))
	}
	if err := tender.CheckOwner(actorID); err != nil {
		return domain.Award{}, s.fail(ctx, op, tenderID, selectedBidID, err)
	}
	bids, err := s.store.ListBids(ctx, tenderID)
	if err != nil {
		return domain.Award{}, s.fail(ctx, op, tenderID, selectedBidID, fmt.Errorf("load bids: %w", err))
	}
	if shortlistedBidIDs == nil {
		shortlistedBidIDs = domain.ShortlistedIDs(bids)
	}

	award, err := domain.PlanAward(tender, bids, selectedBidID, shortlistedBidIDs, s.timestamp())
	if err != nil {
		return domain.Award{}, s.fail(ctx, op, tenderID, selectedBidID, err)
	}
	if err := s.store.ApplyAward(ctx, award); err != nil {
		return domain.Award{}, s.fail(ctx, op, tenderID, selectedBidID, fmt.Errorf("apply award: %w", err))
	}

	msg := fmt.Sprintf("tender awarded to bid %s, %d other bids rejected", award.WinningBidID, len(award.RejectedIDs))
	if award.Reapplied {
		msg = fmt.Sprintf("award to bid %s reapplied", award.WinningBidID)
	}
	s.logger.InfoContext(ctx, "tender finalized",
		"tender_id", tenderID, "winning_bid_id", award.WinningBidID,
		"rejected", len(award.RejectedIDs), "reapplied", award.Reapplied)
	s.report(ctx, domain.Succeeded(op, tenderID, selectedBidID, msg))
	return award, nil
}
