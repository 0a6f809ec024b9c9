package feed

import (
	"context"
	"sync"
	"time"
)

// LoadFunc fetches and normalizes the feed for a territory key.
type LoadFunc func(ctx context.Context, territory string) (*Feed, error)

// Cache is process-wide, time-bounded memoization of territory feeds.
// Expiry is lazy: entries are checked on lookup and replaced, never mutated.
// Concurrent first-time requests for the same territory may both fetch; the
// duplicate upstream GET is cheaper than per-key locking and both writes are
// content-equivalent, so the last one simply wins. The key space is bounded
// by configuration, so no size limit is imposed.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	load    LoadFunc
	now     func() time.Time
}

type cacheEntry struct {
	feed      *Feed
	expiresAt time.Time
}

// NewCache creates a cache that fills misses via load and keeps entries
// alive for ttl.
func NewCache(ttl time.Duration, load LoadFunc) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		load:    load,
		now:     time.Now,
	}
}

// GetOrFetch returns the live cached feed for the territory, or fetches,
// stores, and returns a fresh one. It fails only when no live entry exists
// and the fetch fails.
func (c *Cache) GetOrFetch(ctx context.Context, territory string) (*Feed, error) {
	c.mu.RLock()
	entry, ok := c.entries[territory]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.feed, nil
	}

	fresh, err := c.load(ctx, territory)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[territory] = cacheEntry{feed: fresh, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return fresh, nil
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
