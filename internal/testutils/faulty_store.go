package testutils

import (
	"context"
	"sync"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var _ ports.Store = (*FaultyStore)(nil)

// FaultyStore wraps a ports.Store and fails selected operations on demand.
// It counts every call by operation name so tests can assert that a failing
// path stopped before a write.
type FaultyStore struct {
	ports.Store

	mu     sync.Mutex
	faults map[string][]error
	calls  map[string]int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner ports.Store) *FaultyStore {
	return &FaultyStore{
		Store:  inner,
		faults: make(map[string][]error),
		calls:  make(map[string]int),
	}
}

// FailNext queues errs for operation; each call consumes one. A nil entry
// lets that call through.
func (f *FaultyStore) FailNext(operation string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[operation] = append(f.faults[operation], errs...)
}

// Calls returns how often operation was invoked.
func (f *FaultyStore) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

func (f *FaultyStore) take(operation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[operation]++
	queue := f.faults[operation]
	if len(queue) == 0 {
		return nil
	}
	f.faults[operation] = queue[1:]
	return queue[0]
}

func (f *FaultyStore) ListCriteria(ctx context.Context, tenderID string) ([]domain.EvaluationCriterion, error) {
	if err := f.take("ListCriteria"); err != nil {
		return nil, err
	}
	return f.Store.ListCriteria(ctx, tenderID)
}

func (f *FaultyStore) ListBids(ctx context.Context, tenderID string) ([]domain.Bid, error) {
	if err := f.take("ListBids"); err != nil {
		return nil, err
	}
	return f.Store.ListBids(ctx, tenderID)
}

func (f *FaultyStore) GetBid(ctx context.Context, bidID string) (domain.Bid, error) {
	if err := f.take("GetBid"); err != nil {
		return domain.Bid{}, err
	}
	return f.Store.GetBid(ctx, bidID)
}

func (f *FaultyStore) InsertBid(ctx context.Context, bid domain.Bid) error {
	if err := f.take("InsertBid"); err != nil {
		return err
	}
	return f.Store.InsertBid(ctx, bid)
}

func (f *FaultyStore) UpdateBidStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error {
	if err := f.take("UpdateBidStatus"); err != nil {
		return err
	}
	return f.Store.UpdateBidStatus(ctx, bidID, from, to)
}

func (f *FaultyStore) UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error {
	if err := f.take("UpsertEvaluation"); err != nil {
		return err
	}
	return f.Store.UpsertEvaluation(ctx, ev)
}

func (f *FaultyStore) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	if err := f.take("GetTender"); err != nil {
		return domain.Tender{}, err
	}
	return f.Store.GetTender(ctx, tenderID)
}

func (f *FaultyStore) InsertTender(ctx context.Context, tender domain.Tender) error {
	if err := f.take("InsertTender"); err != nil {
		return err
	}
	return f.Store.InsertTender(ctx, tender)
}

func (f *FaultyStore) UpdateShortlistPolicy(ctx context.Context, tenderID string, policy domain.ShortlistPolicy) error {
	if err := f.take("UpdateShortlistPolicy"); err != nil {
		return err
	}
	return f.Store.UpdateShortlistPolicy(ctx, tenderID, policy)
}

func (f *FaultyStore) ListTenderIDs(ctx context.Context) ([]string, error) {
	if err := f.take("ListTenderIDs"); err != nil {
		return nil, err
	}
	return f.Store.ListTenderIDs(ctx)
}

func (f *FaultyStore) ApplyAward(ctx context.Context, award domain.Award) error {
	if err := f.take("ApplyAward"); err != nil {
		return err
	}
	return f.Store.ApplyAward(ctx, award)
}

func (f *FaultyStore) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	if err := f.take("GetRole"); err != nil {
		return "", err
	}
	return f.Store.GetRole(ctx, userID)
}

func (f *FaultyStore) PutProfile(ctx context.Context, userID string, role domain.Role, profile domain.BidderProfile) error {
	if err := f.take("PutProfile"); err != nil {
		return err
	}
	return f.Store.PutProfile(ctx, userID, role, profile)
}
