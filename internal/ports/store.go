// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-tender/internal/domain"
)

// CriteriaSource gives read-only access to a tender's rubric.
type CriteriaSource interface {
	// ListCriteria returns the tender's criteria in authoring order.
	// Returns domain.ErrNotFound if the tender does not exist.
	ListCriteria(ctx context.Context, tenderID string) ([]domain.EvaluationCriterion, error)
}

// BidStore gives access to a tender's bids. Writes are limited to a single
// status field and to the bid's single evaluation row.
type BidStore interface {
	// ListBids returns every bid of the tender with its evaluation and bidder
	// profile attached, ordered by submission time (oldest first). That order
	// is the tie-break order of the leaderboard.
	ListBids(ctx context.Context, tenderID string) ([]domain.Bid, error)

	// GetBid returns one bid with its evaluation attached.
	GetBid(ctx context.Context, bidID string) (domain.Bid, error)

	// InsertBid stores a new bid. It returns domain.ErrDuplicateBid when the
	// bidder already has a bid on the tender.
	InsertBid(ctx context.Context, bid domain.Bid) error

	// UpdateBidStatus moves one bid from status from to status to. The
	// write only happens while the stored status still equals from;
	// otherwise a *domain.StateTransitionError naming the current status is
	// returned and nothing changes. Unknown bids yield domain.ErrNotFound.
	UpdateBidStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error

	// UpsertEvaluation inserts the bid's evaluation or overwrites the
	// existing one. Concurrent writers race; the last write wins.
	UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error
}

// TenderStore gives access to the evaluation-relevant fields of a tender.
type TenderStore interface {
	// GetTender returns the tender including criteria and specifications.
	GetTender(ctx context.Context, tenderID string) (domain.Tender, error)

	// InsertTender stores a newly authored tender.
	InsertTender(ctx context.Context, tender domain.Tender) error

	// UpdateShortlistPolicy writes shortlist_automatically and
	// shortlist_threshold of one tender.
	UpdateShortlistPolicy(ctx context.Context, tenderID string, policy domain.ShortlistPolicy) error

	// ListTenderIDs returns the ids of all tenders.
	ListTenderIDs(ctx context.Context) ([]string, error)
}

// AwardWriter applies a finalized award. Implementations must apply every
// write of the award or none of them: set the tender's winning bid and
// awarded status, mark the winner selected and every other bid of the tender
// rejected. A tender already awarded to a different bid is left untouched
// and domain.ErrAlreadyAwarded is returned.
type AwardWriter interface {
	ApplyAward(ctx context.Context, award domain.Award) error
}

// RoleSource resolves the role of a user.
// Returns domain.ErrNotFound for unknown users.
type RoleSource interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// ProfileWriter maintains user profiles: the role used for access checks and
// the display data joined onto bids.
type ProfileWriter interface {
	PutProfile(ctx context.Context, userID string, role domain.Role, profile domain.BidderProfile) error
}

// Store is the full persistence contract consumed by the application layer.
type Store interface {
	CriteriaSource
	BidStore
	TenderStore
	AwardWriter
	RoleSource
	ProfileWriter

	// Close releases underlying resources.
	Close(ctx context.Context) error
}
