// Package memory provides an in-process implementation of ports.Store.
// It backs tests, the CLI and single-node development deployments.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps tenders, bids, evaluations and roles in maps guarded by one
// RWMutex. Every value crossing the API boundary is deep-copied, so callers
// can never mutate stored state by accident. ApplyAward holds the write lock
// for the whole award, which makes it atomic with respect to every reader.
type Store struct {
	mu          sync.RWMutex
	tenders     map[string]domain.Tender
	bids        map[string]domain.Bid
	bidOrder    []string // insertion order, the tie-break for equal submitted_at
	evaluations map[string]domain.BidEvaluation
	profiles    map[string]domain.BidderProfile
	roles       map[string]domain.Role
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tenders:     make(map[string]domain.Tender),
		bids:        make(map[string]domain.Bid),
		evaluations: make(map[string]domain.BidEvaluation),
		profiles:    make(map[string]domain.BidderProfile),
		roles:       make(map[string]domain.Role),
	}
}

// ListCriteria implements ports.CriteriaSource.
func (s *Store) ListCriteria(_ context.Context, tenderID string) ([]domain.EvaluationCriterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenders[tenderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(t.Criteria), nil
}

// ListBids implements ports.BidStore.
func (s *Store) ListBids(_ context.Context, tenderID string) ([]domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Bid
	for _, id := range s.bidOrder {
		b := s.bids[id]
		if b.TenderID == tenderID {
			out = append(out, s.hydrate(b))
		}
	}
	slices.SortStableFunc(out, func(x, y domain.Bid) int { return x.SubmittedAt.Compare(y.SubmittedAt) })
	return out, nil
}

// GetBid implements ports.BidStore.
func (s *Store) GetBid(_ context.Context, bidID string) (domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[bidID]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	return s.hydrate(b), nil
}

// InsertBid implements ports.BidStore.
func (s *Store) InsertBid(_ context.Context, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenders[bid.TenderID]; !ok {
		return domain.ErrNotFound
	}
	for _, existing := range s.bids {
		if existing.TenderID == bid.TenderID && existing.BidderID == bid.BidderID {
			return domain.ErrDuplicateBid
		}
	}
	if _, ok := s.bids[bid.ID]; ok {
		return domain.ErrDuplicateBid
	}

	stored := cloneBid(bid)
	stored.Evaluation = nil
	stored.Bidder = nil
	s.bids[bid.ID] = stored
	s.bidOrder = append(s.bidOrder, bid.ID)
	return nil
}

// UpdateBidStatus implements ports.BidStore.
func (s *Store) UpdateBidStatus(_ context.Context, bidID string, from, to domain.BidStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.NewStateTransitionError(bidID, b.Status, to)
	}
	b.Status = to
	s.bids[bidID] = b
	return nil
}

// UpsertEvaluation implements ports.BidStore.
func (s *Store) UpsertEvaluation(_ context.Context, ev domain.BidEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bids[ev.BidID]; !ok {
		return domain.ErrNotFound
	}
	if prev, ok := s.evaluations[ev.BidID]; ok {
		// One row per bid: an overwrite keeps the original row id.
		ev.ID = prev.ID
	}
	ev.CriteriaScores = maps.Clone(ev.CriteriaScores)
	s.evaluations[ev.BidID] = ev
	return nil
}

// GetTender implements ports.TenderStore.
func (s *Store) GetTender(_ context.Context, tenderID string) (domain.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenders[tenderID]
	if !ok {
		return domain.Tender{}, domain.ErrNotFound
	}
	return cloneTender(t), nil
}

// InsertTender implements ports.TenderStore.
func (s *Store) InsertTender(_ context.Context, tender domain.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenders[tender.ID]; ok {
		return ports.NewStorageError("InsertTender", tender.ID, ports.ErrConflict)
	}
	s.tenders[tender.ID] = cloneTender(tender)
	return nil
}

// UpdateShortlistPolicy implements ports.TenderStore.
func (s *Store) UpdateShortlistPolicy(_ context.Context, tenderID string, policy domain.ShortlistPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[tenderID]
	if !ok {
		return domain.ErrNotFound
	}
	t.ShortlistAutomatically = policy.Enabled
	t.ShortlistThreshold = policy.Threshold
	s.tenders[tenderID] = t
	return nil
}

// ListTenderIDs implements ports.TenderStore.
func (s *Store) ListTenderIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tenders)), nil
}

// ApplyAward implements ports.AwardWriter. All referenced rows are checked
// before the first write, so a failed award leaves no trace.
func (s *Store) ApplyAward(_ context.Context, award domain.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenders[award.TenderID]
	if !ok {
		return domain.ErrNotFound
	}
	winner, ok := s.bids[award.WinningBidID]
	if !ok || winner.TenderID != award.TenderID {
		return domain.ErrNotFound
	}
	if t.WinningBidID != "" && t.WinningBidID != award.WinningBidID {
		return domain.ErrAlreadyAwarded
	}

	t.WinningBidID = award.WinningBidID
	t.Status = domain.TenderAwarded
	s.tenders[t.ID] = t

	winner.Status = domain.StatusSelected
	s.bids[winner.ID] = winner

	// Every other bid of the tender is rejected, including bids submitted
	// after the award was planned.
	for id, b := range s.bids {
		if b.TenderID == award.TenderID && id != award.WinningBidID {
			b.Status = domain.StatusRejected
			s.bids[id] = b
		}
	}
	return nil
}

// GetRole implements ports.RoleSource.
func (s *Store) GetRole(_ context.Context, userID string) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return r, nil
}

// PutProfile implements ports.ProfileWriter.
func (s *Store) PutProfile(_ context.Context, userID string, role domain.Role, profile domain.BidderProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
	s.profiles[userID] = profile
	return nil
}

// Close implements ports.Store.
func (s *Store) Close(context.Context) error { return nil }

// hydrate attaches the evaluation and bidder profile. Callers hold s.mu.
func (s *Store) hydrate(b domain.Bid) domain.Bid {
	out := cloneBid(b)
	if ev, ok := s.evaluations[b.ID]; ok {
		ev.CriteriaScores = maps.Clone(ev.CriteriaScores)
		out.Evaluation = &ev
	}
	if p, ok := s.profiles[b.BidderID]; ok {
		out.Bidder = &p
	}
	return out
}

func cloneBid(b domain.Bid) domain.Bid {
	b.Specifications = maps.Clone(b.Specifications)
	b.CriteriaResponses = maps.Clone(b.CriteriaResponses)
	if b.Evaluation != nil {
		ev := *b.Evaluation
		ev.CriteriaScores = maps.Clone(ev.CriteriaScores)
		b.Evaluation = &ev
	}
	if b.Bidder != nil {
		p := *b.Bidder
		b.Bidder = &p
	}
	return b
}

func cloneTender(t domain.Tender) domain.Tender {
	t.Criteria = slices.Clone(t.Criteria)
	t.RequiredSpecifications = slices.Clone(t.RequiredSpecifications)
	return t
}
