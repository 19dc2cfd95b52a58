// Package cache provides the tenant-keyed read-through cache used by the
// dashboard endpoints. The per-report compile/execute path never consults it;
// reports are always freshly executed.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// DefaultTTL is how long a dashboard aggregate stays fresh.
const DefaultTTL = 5 * time.Minute

// TenantCache wraps an in-process cache with tenant-scoped keys. Long-lived,
// concurrently mutated; go-cache handles its own locking. Initialized once at
// process start.
type TenantCache struct {
	store   *gocache.Cache
	monitor domain.PerformanceMonitor
}

// New creates a TenantCache. monitor may be nil.
func New(ttl time.Duration, monitor domain.PerformanceMonitor) *TenantCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TenantCache{
		store:   gocache.New(ttl, 2*ttl),
		monitor: monitor,
	}
}

// Key builds the canonical tenant-scoped cache key.
func Key(tenantID, key string) string {
	return "tenant:" + tenantID + ":" + key
}

// GetOrLoad returns the cached value for (tenant, key), loading and storing
// it on a miss. Every probe is reported to the performance monitor.
func (c *TenantCache) GetOrLoad(ctx context.Context, tenantID, key string, load func(context.Context) (any, error)) (any, error) {
	k := Key(tenantID, key)

	if v, ok := c.store.Get(k); ok {
		c.observe(k, true)
		return v, nil
	}
	c.observe(k, false)

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(k, v)
	return v, nil
}

// Invalidate drops one tenant-scoped entry.
func (c *TenantCache) Invalidate(tenantID, key string) {
	c.store.Delete(Key(tenantID, key))
}

func (c *TenantCache) observe(key string, hit bool) {
	if c.monitor != nil {
		c.monitor.ObserveCache(key, hit)
	}
}
