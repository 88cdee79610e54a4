// Package redis provides a shared permission cache for multi-instance
// deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

const allTenantsKey = "_all"

// PermissionCache implements rbac.PermissionCache with generation counters:
// entries embed the current global, tenant and user generations in their key,
// and invalidation bumps a counter instead of scanning keys. The key read on a
// miss is the version token, so a late Set lands under generations nobody
// reads any more. Orphaned entries age out through the TTL.
type PermissionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ rbac.PermissionCache = (*PermissionCache)(nil)

func NewPermissionCache(client redis.UniversalClient, prefix string, ttl time.Duration) *PermissionCache {
	if prefix == "" {
		prefix = "rbac"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *PermissionCache) globalGenKey() string {
	return c.prefix + ":gen:global"
}

func (c *PermissionCache) tenantGenKey(tenantID string) string {
	if tenantID == rbac.GlobalTenant {
		tenantID = allTenantsKey
	}
	return c.prefix + ":gen:tenant:" + tenantID
}

func (c *PermissionCache) userGenKey(userID string) string {
	return c.prefix + ":gen:user:" + userID
}

func (c *PermissionCache) entryKey(ctx context.Context, userID, tenantID string) (string, error) {
	vals, err := c.client.MGet(ctx, c.globalGenKey(), c.tenantGenKey(tenantID), c.userGenKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("read cache generations: %w", err)
	}
	gens := make([]int64, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			gens[i], _ = strconv.ParseInt(s, 10, 64)
		}
	}
	tenant := tenantID
	if tenant == rbac.GlobalTenant {
		tenant = allTenantsKey
	}
	return fmt.Sprintf("%s:perms:%d.%d.%d:%s:%s", c.prefix, gens[0], gens[1], gens[2], tenant, userID), nil
}

func (c *PermissionCache) Get(ctx context.Context, userID, tenantID string) ([]string, string, bool, error) {
	key, err := c.entryKey(ctx, userID, tenantID)
	if err != nil {
		return nil, "", false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, key, false, nil
		}
		return nil, "", false, fmt.Errorf("read cached permissions: %w", err)
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, "", false, fmt.Errorf("decode cached permissions: %w", err)
	}
	return perms, "", true, nil
}

// Set writes under the key handed out by Get; version is that key.
func (c *PermissionCache) Set(ctx context.Context, userID, tenantID, version string, perms []string) error {
	if version == "" {
		return nil
	}
	if perms == nil {
		perms = []string{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if err := c.client.Set(ctx, version, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached permissions: %w", err)
	}
	return nil
}

func (c *PermissionCache) InvalidateUser(ctx context.Context, userID string) error {
	return c.bump(ctx, c.userGenKey(userID))
}

func (c *PermissionCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	if tenantID == rbac.GlobalTenant {
		return c.bump(ctx, c.globalGenKey())
	}
	return c.bump(ctx, c.tenantGenKey(tenantID), c.tenantGenKey(rbac.GlobalTenant))
}

func (c *PermissionCache) bump(ctx context.Context, keys ...string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
