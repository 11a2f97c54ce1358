// Package session holds per-session state that the HTTP layer needs between
// requests. Nothing here is global: callers own the cache and clear it on
// sign-out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

// ErrNilSource is returned when a RoleCache is built without a source.
var ErrNilSource = errors.New("role source cannot be nil")

type entry struct {
	role    domain.Role
	expires time.Time
}

// RoleCache memoizes user roles loaded from a ports.RoleSource. Concurrent
// misses for the same user share one load. Entries live until ttl passes,
// Invalidate is called for the user, or Clear empties the cache. A zero ttl
// keeps entries until they are invalidated.
type RoleCache struct {
	source ports.RoleSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	sf      singleflight.Group
}

// NewRoleCache creates an empty cache over source.
func NewRoleCache(source ports.RoleSource, ttl time.Duration) (*RoleCache, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	return &RoleCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}, nil
}

// Role returns the role of userID. Unknown users yield domain.ErrNotFound
// and are not cached.
func (c *RoleCache) Role(ctx context.Context, userID string) (domain.Role, error) {
	if role, ok := c.lookup(userID); ok {
		return role, nil
	}

	v, err, _ := c.sf.Do(userID, func() (any, error) {
		// Re-check inside the flight to cover a load that finished between
		// the lookup above and joining the group.
		if role, ok := c.lookup(userID); ok {
			return role, nil
		}
		role, err := c.source.GetRole(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !role.Valid() {
			return nil, fmt.Errorf("user %s has unknown role %q", userID, role)
		}
		c.store(userID, role)
		return role, nil
	})
	if err != nil {
		return "", err
	}
	return v.(domain.Role), nil
}

func (c *RoleCache) lookup(userID string) (domain.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && !c.now().Before(e.expires) {
		return "", false
	}
	return e.role, true
}

func (c *RoleCache) store(userID string, role domain.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = entry{role: role, expires: c.now().Add(c.ttl)}
}

// Invalidate drops the cached role of userID, e.g. on sign-out or after a
// role change.
func (c *RoleCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.sf.Forget(userID)
}

// Clear drops every cached role.
func (c *RoleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of cached entries, expired ones included.
func (c *RoleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
