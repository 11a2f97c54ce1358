// Package middleware decorates a ports.Store with cross-cutting behavior:
// retries, circuit breaking, rate limiting, timeouts, tracing and metrics.
//
// Every store method is funneled through one Invoker chain, so each concern
// is written once regardless of how many methods the store has:
//
//	store := middleware.Wrap(sqlStore,
//	    middleware.MetricsMiddleware(collector),
//	    middleware.TracingMiddleware("tenderd"),
//	    middleware.RetryMiddleware(3, 50*time.Millisecond, time.Second),
//	    middleware.CircuitBreakerMiddleware(5, 30*time.Second),
//	    middleware.RateLimitMiddleware(200, 50),
//	    middleware.TimeoutMiddleware(5*time.Second),
//	)
//
// Middleware listed first is outermost.
package middleware

import (
	"context"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// Operation describes one store call.
type Operation struct {
	// Name is the store method, e.g. "ApplyAward".
	Name string
	// Key is the tender, bid or user id involved, if any.
	Key string
	// Write is set for calls that modify state.
	Write bool
	// Run performs the call against the wrapped store.
	Run func(ctx context.Context) error
}

// Invoker executes an operation.
type Invoker func(ctx context.Context, op Operation) error

// Middleware wraps an Invoker to add cross-cutting functionality.
type Middleware func(next Invoker) Invoker

func direct(ctx context.Context, op Operation) error { return op.Run(ctx) }

// Wrap returns store with mws applied. The first middleware is outermost.
func Wrap(store ports.Store, mws ...Middleware) ports.Store {
	inv := Invoker(direct)
	for i := len(mws) - 1; i >= 0; i-- {
		inv = mws[i](inv)
	}
	return &wrappedStore{next: store, invoke: inv}
}

var _ ports.Store = (*wrappedStore)(nil)

type wrappedStore struct {
	next   ports.Store
	invoke Invoker
}

func (s *wrappedStore) call(ctx context.Context, name, key string, write bool, run func(ctx context.Context) error) error {
	return s.invoke(ctx, Operation{Name: name, Key: key, Write: write, Run: run})
}

func (s *wrappedStore) ListCriteria(ctx context.Context, tenderID string) ([]domain.EvaluationCriterion, error) {
	var out []domain.EvaluationCriterion
	err := s.call(ctx, "ListCriteria", tenderID, false, func(ctx context.Context) error {
		var err error
		out, err = s.next.ListCriteria(ctx, tenderID)
		return err
	})
	return out, err
}

func (s *wrappedStore) ListBids(ctx context.Context, tenderID string) ([]domain.Bid, error) {
	var out []domain.Bid
	err := s.call(ctx, "ListBids", tenderID, false, func(ctx context.Context) error {
		var err error
		out, err = s.next.ListBids(ctx, tenderID)
		return err
	})
	return out, err
}

func (s *wrappedStore) GetBid(ctx context.Context, bidID string) (domain.Bid, error) {
	var out domain.Bid
	err := s.call(ctx, "GetBid", bidID, false, func(ctx context.Context) error {
		var err error
		out, err = s.next.GetBid(ctx, bidID)
		return err
	})
	return out, err
}

func (s *wrappedStore) InsertBid(ctx context.Context, bid domain.Bid) error {
	return s.call(ctx, "InsertBid", bid.ID, true, func(ctx context.Context) error {
		return s.next.InsertBid(ctx, bid)
	})
}

func (s *wrappedStore) UpdateBidStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error {
	return s.call(ctx, "UpdateBidStatus", bidID, true, func(ctx context.Context) error {
		return s.next.UpdateBidStatus(ctx, bidID, from, to)
	})
}

func (s *wrappedStore) UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error {
	return s.call(ctx, "UpsertEvaluation", ev.BidID, true, func(ctx context.Context) error {
		return s.next.UpsertEvaluation(ctx, ev)
	})
}

func (s *wrappedStore) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	var out domain.Tender
	err := s.call(ctx, "GetTender", tenderID, false, func(ctx context.Context) error {
		var err error
		out, err = s.next.GetTender(ctx, tenderID)
		return err
	})
	return out, err
}

func (s *wrappedStore) InsertTender(ctx context.Context, tender domain.Tender) error {
	return s.call(ctx, "InsertTender", tender.ID, true, func(ctx context.Context) error {
		return s.next.InsertTender(ctx, tender)
	})
}

func (s *wrappedStore) UpdateShortlistPolicy(ctx context.Context, tenderID string, policy domain.ShortlistPolicy) error {
	return s.call(ctx, "UpdateShortlistPolicy", tenderID, true, func(ctx context.Context) error {
		return s.next.UpdateShortlistPolicy(ctx, tenderID, policy)
	})
}

func (s *wrappedStore) ListTenderIDs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.call(ctx, "ListTenderIDs", "", false, func(ctx context.Context) error {
		var err error
		out, err = s.next.ListTenderIDs(ctx)
		return err
	})
	return out, err
}

func (s *wrappedStore) ApplyAward(ctx context.Context, award domain.Award) error {
	return s.call(ctx, "ApplyAward", award.TenderID, true, func(ctx context.Context) error {
		return s.next.ApplyAward(ctx, award)
	})
}

func (s *wrappedStore) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	var out domain.Role
	err := s.call(ctx, "GetRole", userID, false, func(ctx context.Context) error {
		var err error
		out, err = s.next.GetRole(ctx, userID)
		return err
	})
	return out, err
}

func (s *wrappedStore) PutProfile(ctx context.Context, userID string, role domain.Role, p domain.BidderProfile) error {
	return s.call(ctx, "PutProfile", userID, true, func(ctx context.Context) error {
		return s.next.PutProfile(ctx, userID, role, p)
	})
}

// Close bypasses the chain.
func (s *wrappedStore) Close(ctx context.Context) error { return s.next.Close(ctx) }
