package rbac

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// PermissionCache stores resolved permission lists keyed by (userID, tenantID).
//
// A miss hands back a version token. Set only stores under a version that is
// still current, so a list loaded before an invalidation is never written back
// after it. An empty version is never stored.
//
// InvalidateTenant(t) drops every entry for t and every tenant-less entry.
// InvalidateTenant("") drops everything.
type PermissionCache interface {
	Get(ctx context.Context, userID, tenantID string) (perms []string, version string, ok bool, err error)
	Set(ctx context.Context, userID, tenantID, version string, perms []string) error
	InvalidateUser(ctx context.Context, userID string) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, string) ([]string, string, bool, error) {
	return nil, "", false, nil
}
func (nopCache) Set(context.Context, string, string, string, []string) error { return nil }
func (nopCache) InvalidateUser(context.Context, string) error                 { return nil }
func (nopCache) InvalidateTenant(context.Context, string) error               { return nil }

type memoryEntry struct {
	perms     []string
	expiresAt time.Time
}

// MemoryCache is an in-process PermissionCache. Invalidations never reach
// other processes, so it is only correct for single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry
	global  uint64
	tenants map[string]uint64
	users   map[string]uint64
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]map[string]memoryEntry),
		tenants: make(map[string]uint64),
		users:   make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// version must be called with the lock held.
func (c *MemoryCache) version(userID, tenantID string) string {
	return strconv.FormatUint(c.global, 10) + "." +
		strconv.FormatUint(c.tenants[tenantID], 10) + "." +
		strconv.FormatUint(c.users[userID], 10)
}

func (c *MemoryCache) Get(_ context.Context, userID, tenantID string) ([]string, string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[userID][tenantID]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, c.version(userID, tenantID), false, nil
	}
	return append([]string(nil), e.perms...), "", true, nil
}

func (c *MemoryCache) Set(_ context.Context, userID, tenantID, version string, perms []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version == "" || version != c.version(userID, tenantID) {
		return nil
	}
	byTenant, ok := c.entries[userID]
	if !ok {
		byTenant = make(map[string]memoryEntry)
		c.entries[userID] = byTenant
	}
	byTenant[tenantID] = memoryEntry{
		perms:     append([]string(nil), perms...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) InvalidateUser(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID]++
	delete(c.entries, userID)
	return nil
}

func (c *MemoryCache) InvalidateTenant(_ context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tenantID == GlobalTenant {
		c.global++
		c.entries = make(map[string]map[string]memoryEntry)
		return nil
	}
	c.tenants[tenantID]++
	c.tenants[GlobalTenant]++
	for _, byTenant := range c.entries {
		delete(byTenant, tenantID)
		delete(byTenant, GlobalTenant)
	}
	return nil
}
