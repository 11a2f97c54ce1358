package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

// awardEnv seeds tender t-1 with b1 (submitted), b2 (shortlisted) and
// b5 (shortlisted).
func awardEnv(t *testing.T) (*env, *AwardService) {
	t.Helper()
	e := newEnv(t)
	e.tender(t, testutils.TenderFixture("t-1"))
	e.bid(t, "b1", "t-1", 40, 0, domain.StatusSubmitted)
	e.bid(t, "b2", "t-1", 80, 1, domain.StatusShortlisted)
	e.bid(t, "b5", "t-1", 70, 2, domain.StatusShortlisted)
	svc, err := NewAwardService(e.store, e.opts()...)
	require.NoError(t, err)
	return e, svc
}

func TestAwardService_Finalize(t *testing.T) {
	e, svc := awardEnv(t)

	award, err := svc.Finalize(context.Background(), owner, "t-1", "b2", []string{"b2", "b5"})

	require.NoError(t, err)
	assert.Equal(t, "b2", award.WinningBidID)
	assert.ElementsMatch(t, []string{"b1", "b5"}, award.RejectedIDs)
	assert.Equal(t, fixedNow, award.AwardedAt)
	assert.False(t, award.Reapplied)

	tender, bids := snapshot(t, e.store, "t-1")
	assert.Equal(t, "b2", tender.WinningBidID)
	assert.Equal(t, domain.TenderAwarded, tender.Status)
	statuses := map[string]domain.BidStatus{}
	for _, b := range bids {
		statuses[b.ID] = b.Status
	}
	assert.Equal(t, map[string]domain.BidStatus{
		"b1": domain.StatusRejected,
		"b2": domain.StatusSelected,
		"b5": domain.StatusRejected,
	}, statuses)

	last := e.sink.Last()
	assert.True(t, last.Success)
	assert.Equal(t, domain.OpFinalize, last.Operation)
}

func TestAwardService_Finalize_DerivesShortlist(t *testing.T) {
	e, svc := awardEnv(t)

	_, err := svc.Finalize(context.Background(), owner, "t-1", "b5", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSelected, e.status(t, "b5"))
	assert.Equal(t, domain.StatusRejected, e.status(t, "b2"))
}

func TestAwardService_Finalize_RejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name        string
		selected    string
		shortlisted []string
		prepare     func(t *testing.T, e *env)
		wantErr     error
	}{
		{name: "not in shortlist", selected: "b1", shortlisted: []string{"b2", "b5"}, wantErr: domain.ErrValidation},
		{name: "empty shortlist", selected: "b2", shortlisted: []string{}, wantErr: domain.ErrValidation},
		{name: "empty selection", selected: "", shortlisted: []string{"b2"}, wantErr: domain.ErrValidation},
		{name: "bid of another tender", selected: "x9", shortlisted: []string{"x9"}, wantErr: domain.ErrValidation},
		{
			name: "stale shortlist", selected: "b1", shortlisted: []string{"b1"},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "storage failure while applying", selected: "b2", shortlisted: []string{"b2", "b5"},
			prepare: func(t *testing.T, e *env) {
				e.store.FailNext("ApplyAward", unavailable("ApplyAward"))
			},
			wantErr: ports.ErrStoreUnavailable,
		},
		{
			name: "storage failure while reading", selected: "b2", shortlisted: []string{"b2", "b5"},
			prepare: func(t *testing.T, e *env) {
				e.store.FailNext("ListBids", unavailable("ListBids"))
			},
			wantErr: ports.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := awardEnv(t)
			if tt.prepare != nil {
				tt.prepare(t, e)
			}
			beforeTender, beforeBids := snapshot(t, e.store, "t-1")

			_, err := svc.Finalize(context.Background(), owner, "t-1", tt.selected, tt.shortlisted)

			require.ErrorIs(t, err, tt.wantErr)
			afterTender, afterBids := snapshot(t, e.store, "t-1")
			assert.Equal(t, beforeTender, afterTender)
			assert.Equal(t, beforeBids, afterBids)
			assert.False(t, e.sink.Last().Success)
		})
	}
}

func TestAwardService_Finalize_OwnerOnly(t *testing.T) {
	tests := []struct {
		name  string
		actor string
	}{
		{name: "other government user", actor: "gov-2"},
		{name: "anonymous", actor: ""},
		{name: "bidder of the tender", actor: "bidder-b2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := awardEnv(t)
			beforeTender, beforeBids := snapshot(t, e.store, "t-1")

			_, err := svc.Finalize(context.Background(), tt.actor, "t-1", "b2", []string{"b2", "b5"})

			require.ErrorIs(t, err, domain.ErrNotOwner)
			var oe *domain.OwnershipError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.actor, oe.UserID)
			assert.Equal(t, ports.KindForbidden, ports.KindOf(err))
			assert.Zero(t, e.store.Calls("ApplyAward"))
			afterTender, afterBids := snapshot(t, e.store, "t-1")
			assert.Equal(t, beforeTender, afterTender)
			assert.Equal(t, beforeBids, afterBids)
		})
	}
}

func TestAwardService_Finalize_Idempotent(t *testing.T) {
	e, svc := awardEnv(t)
	ctx := context.Background()

	_, err := svc.Finalize(ctx, owner, "t-1", "b2", []string{"b2", "b5"})
	require.NoError(t, err)
	firstTender, firstBids := snapshot(t, e.store, "t-1")

	again, err := svc.Finalize(ctx, owner, "t-1", "b2", []string{"b2", "b5"})
	require.NoError(t, err)
	assert.True(t, again.Reapplied)

	secondTender, secondBids := snapshot(t, e.store, "t-1")
	assert.Equal(t, firstTender, secondTender)
	assert.Equal(t, firstBids, secondBids)
}

func TestAwardService_Finalize_DifferentWinnerRefused(t *testing.T) {
	e, svc := awardEnv(t)
	ctx := context.Background()

	_, err := svc.Finalize(ctx, owner, "t-1", "b2", []string{"b2", "b5"})
	require.NoError(t, err)
	before, beforeBids := snapshot(t, e.store, "t-1")

	_, err = svc.Finalize(ctx, owner, "t-1", "b5", []string{"b2", "b5"})

	require.ErrorIs(t, err, domain.ErrAlreadyAwarded)
	after, afterBids := snapshot(t, e.store, "t-1")
	assert.Equal(t, before, after)
	assert.Equal(t, beforeBids, afterBids)
}

func TestAwardService_Finalize_ConcurrentSingleWinner(t *testing.T) {
	e, svc := awardEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"b2", "b5", "b2", "b5"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Finalize(ctx, owner, "t-1", id, nil)
		}()
	}
	wg.Wait()

	tender, bids := snapshot(t, e.store, "t-1")
	require.NotEmpty(t, tender.WinningBidID)
	selected := 0
	for _, b := range bids {
		if b.Status == domain.StatusSelected {
			selected++
			assert.Equal(t, tender.WinningBidID, b.ID)
		} else {
			assert.Equal(t, domain.StatusRejected, b.Status)
		}
	}
	assert.Equal(t, 1, selected)
}
