package envcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
)

type entry struct {
	snapshot  features.EnvironmentalSnapshot
	expiresAt time.Time
}

// MemoryCache is an in-process snapshot cache for tests/dev and single replicas.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements environment.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (features.EnvironmentalSnapshot, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return features.EnvironmentalSnapshot{}, false, nil
	}
	if c.expired(e.expiresAt) {
		return c.evict(key)
	}
	return e.snapshot, true, nil
}

// evict drops key if it is still expired under the write lock. A Set that
// landed after the read wins and is returned.
func (c *MemoryCache) evict(key string) (features.EnvironmentalSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return features.EnvironmentalSnapshot{}, false, nil
	}
	if c.expired(e.expiresAt) {
		delete(c.entries, key)
		return features.EnvironmentalSnapshot{}, false, nil
	}
	return e.snapshot, true, nil
}

// Set caches the snapshot; a non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key string, snapshot features.EnvironmentalSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = entry{snapshot: snapshot, expiresAt: exp}
	return nil
}

func (c *MemoryCache) expired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return !ts.After(c.now())
}

var _ environment.Cache = (*MemoryCache)(nil)
