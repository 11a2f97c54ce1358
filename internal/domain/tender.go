package domain

import "time"

// TenderStatus is the publication state of a tender.
type TenderStatus string

const (
	TenderOpen    TenderStatus = "open"
	TenderClosed  TenderStatus = "closed"
	TenderAwarded TenderStatus = "awarded"
)

// DefaultShortlistThreshold is the threshold used when a tender does not set one.
const DefaultShortlistThreshold = 70.0

// Tender carries the fields of a tender that matter to evaluation.
type Tender struct {
	ID                     string                  `json:"id"`
	Title                  string                  `json:"title"`
	OwnerID                string                  `json:"owner_id"`
	Status                 TenderStatus            `json:"status"`
	ShortlistAutomatically bool                    `json:"shortlist_automatically"`
	ShortlistThreshold     float64                 `json:"shortlist_threshold"`
	WinningBidID           string                  `json:"winning_bid_id,omitempty"`
	Criteria               []EvaluationCriterion   `json:"evaluation_criteria"`
	RequiredSpecifications []RequiredSpecification `json:"required_specifications,omitempty"`
	CreatedAt              time.Time               `json:"created_at"`
}

// IsAwarded reports whether a winner has already been recorded.
func (t Tender) IsAwarded() bool { return t.WinningBidID != "" || t.Status == TenderAwarded }

// CheckOwner returns an *OwnershipError unless userID owns the tender.
// A tender without a recorded owner accepts nobody.
func (t Tender) CheckOwner(userID string) error {
	if t.OwnerID == "" || userID != t.OwnerID {
		return &OwnershipError{TenderID: t.ID, UserID: userID}
	}
	return nil
}

// ShortlistPolicy is the automatic shortlisting configuration of a tender.
type ShortlistPolicy struct {
	Enabled   bool    `json:"shortlist_automatically"`
	Threshold float64 `json:"shortlist_threshold"`
}

// Policy returns the tender's shortlisting policy.
func (t Tender) Policy() ShortlistPolicy {
	return ShortlistPolicy{Enabled: t.ShortlistAutomatically, Threshold: t.ShortlistThreshold}
}
