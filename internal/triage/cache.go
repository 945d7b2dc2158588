package triage

import (
	"context"
	"sync"
	"time"
)

const (
	defaultCacheTTL      = 5 * time.Minute
	defaultCacheCapacity = 1000
)

// DecisionCache stores recent decisions keyed by the canonical case key.
// Implementations must treat entries older than their TTL as absent.
type DecisionCache interface {
	Get(ctx context.Context, key string) (Decision, bool, error)
	Put(ctx context.Context, key string, decision Decision) error
}

type cachedDecision struct {
	decision Decision
	cachedAt time.Time
	ttl      time.Duration
}

// MemoryCache is a bounded in-process DecisionCache. Entries expire after the
// configured TTL and are purged lazily on access; when the store is full, the
// entry with the oldest cachedAt is evicted before insertion.
//
// The cache is an explicitly constructed, owned service — there is no package
// singleton. Share one instance by passing it to whichever component needs it.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]cachedDecision
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewMemoryCache returns an empty cache with the given TTL and capacity.
// Non-positive arguments fall back to the defaults (5m, 1000 entries).
func NewMemoryCache(ttl time.Duration, capacity int) *MemoryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &MemoryCache{
		entries:  make(map[string]cachedDecision),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached decision for key, if present and still fresh.
// Expired entries are removed on access.
func (c *MemoryCache) Get(_ context.Context, key string) (Decision, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Decision{}, false, nil
	}
	if c.now().Sub(entry.cachedAt) >= entry.ttl {
		delete(c.entries, key)
		return Decision{}, false, nil
	}
	return entry.decision, true, nil
}

// Put inserts or overwrites the decision for key, evicting the oldest entry
// first when the cache is at capacity.
func (c *MemoryCache) Put(_ context.Context, key string, decision Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cachedDecision{
		decision: decision,
		cachedAt: c.now(),
		ttl:      c.ttl,
	}
	return nil
}

// Len reports the current number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
