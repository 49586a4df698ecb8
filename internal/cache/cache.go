// Package cache memoizes assembled rapport responses per ZIP with a
// passive TTL: stale entries are treated as misses but never proactively
// evicted. The backing store is pluggable so a multi-instance deployment
// can share one.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/model"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 6 * time.Hour

// Store persists cache entries. Get reports found=false for unknown keys;
// TTL handling lives in Cache, not in stores.
type Store interface {
	Get(ctx context.Context, zip string) (payload *model.RapportResponse, storedAt time.Time, found bool, err error)
	Set(ctx context.Context, zip string, payload *model.RapportResponse, at time.Time) error
}

// Cache applies the TTL policy over a Store. Store errors degrade to a
// miss; the cache is an optimization, never a failure source.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Cache with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached payload if it exists and is fresher than the TTL.
func (c *Cache) Get(ctx context.Context, zip string) (*model.RapportResponse, bool) {
	payload, storedAt, found, err := c.store.Get(ctx, zip)
	if err != nil {
		zap.L().Warn("cache: read failed", zap.String("zip", zip), zap.Error(err))
		return nil, false
	}
	if !found || c.now().Sub(storedAt) >= c.ttl {
		return nil, false
	}
	return payload, true
}

// Set unconditionally overwrites the entry for zip.
func (c *Cache) Set(ctx context.Context, zip string, payload *model.RapportResponse) {
	if err := c.store.Set(ctx, zip, payload, c.now()); err != nil {
		zap.L().Warn("cache: write failed", zap.String("zip", zip), zap.Error(err))
	}
}
