package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/infrastructure/storage/memory"
	"github.com/ahrav/go-tender/internal/domain"
)

// countingSource serves roles from a map and counts loads. When gate is
// set every load waits for it to close.
type countingSource struct {
	roles map[string]domain.Role
	err   error
	gate  chan struct{}
	loads atomic.Int32
}

func (s *countingSource) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	s.loads.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	r, ok := s.roles[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return r, nil
}

func TestNewRoleCache_NilSource(t *testing.T) {
	_, err := NewRoleCache(nil, time.Minute)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestRoleCache_CachesHits(t *testing.T) {
	src := &countingSource{roles: map[string]domain.Role{"gov-1": domain.RoleGovernment}}
	c, err := NewRoleCache(src, 0)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		role, err := c.Role(ctx, "gov-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleGovernment, role)
	}
	assert.Equal(t, int32(1), src.loads.Load())
	assert.Equal(t, 1, c.Len())
}

func TestRoleCache_UnknownUserNotCached(t *testing.T) {
	src := &countingSource{roles: map[string]domain.Role{}}
	c, err := NewRoleCache(src, 0)
	require.NoError(t, err)

	_, err = c.Role(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.Role(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int32(2), src.loads.Load())
	assert.Zero(t, c.Len())
}

func TestRoleCache_InvalidRole(t *testing.T) {
	src := &countingSource{roles: map[string]domain.Role{"odd": "admin"}}
	c, err := NewRoleCache(src, 0)
	require.NoError(t, err)

	_, err = c.Role(context.Background(), "odd")
	assert.ErrorContains(t, err, `unknown role "admin"`)
}

func TestRoleCache_SourceError(t *testing.T) {
	boom := errors.New("db down")
	c, err := NewRoleCache(&countingSource{err: boom}, 0)
	require.NoError(t, err)

	_, err = c.Role(context.Background(), "gov-1")
	assert.ErrorIs(t, err, boom)
}

func TestRoleCache_InvalidateAndClear(t *testing.T) {
	src := &countingSource{roles: map[string]domain.Role{
		"gov-1":  domain.RoleGovernment,
		"eval-1": domain.RoleEvaluator,
	}}
	c, err := NewRoleCache(src, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = c.Role(ctx, "gov-1")
	_, _ = c.Role(ctx, "eval-1")
	require.Equal(t, 2, c.Len())

	// Role change takes effect after sign-out.
	src.roles["gov-1"] = domain.RolePublic
	role, _ := c.Role(ctx, "gov-1")
	assert.Equal(t, domain.RoleGovernment, role, "cached until invalidated")

	c.Invalidate("gov-1")
	role, err = c.Role(ctx, "gov-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RolePublic, role)

	c.Clear()
	assert.Zero(t, c.Len())
	_, _ = c.Role(ctx, "eval-1")
	assert.Equal(t, int32(4), src.loads.Load())
}

func TestRoleCache_TTL(t *testing.T) {
	src := &countingSource{roles: map[string]domain.Role{"b-1": domain.RoleBidder}}
	c, err := NewRoleCache(src, time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = c.Role(ctx, "b-1")
	now = now.Add(59 * time.Second)
	_, _ = c.Role(ctx, "b-1")
	assert.Equal(t, int32(1), src.loads.Load())

	now = now.Add(time.Second)
	_, _ = c.Role(ctx, "b-1")
	assert.Equal(t, int32(2), src.loads.Load(), "expired entries reload")
}

func TestRoleCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	src := &countingSource{
		roles: map[string]domain.Role{"gov-1": domain.RoleGovernment},
		gate:  make(chan struct{}),
	}
	c, err := NewRoleCache(src, 0)
	require.NoError(t, err)

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	roles := make([]domain.Role, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			roles[i], _ = c.Role(context.Background(), "gov-1")
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return src.loads.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.loads.Load())
	for _, r := range roles {
		assert.Equal(t, domain.RoleGovernment, r)
	}
}

func TestRoleCache_WithMemoryStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.PutProfile(ctx, "eval-1", domain.RoleEvaluator, domain.BidderProfile{FullName: "Sam Reyes"}))

	c, err := NewRoleCache(store, time.Minute)
	require.NoError(t, err)

	role, err := c.Role(ctx, "eval-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEvaluator, role)
}
