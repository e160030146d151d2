package parkfind

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultMaxCacheEntries caps the in-memory cache before oldest-first
// eviction kicks in.
const DefaultMaxCacheEntries = 1024

// InMemoryCache is a mutex-guarded route cache with TTL expiry checked on
// read and a hard entry cap. Eviction above the cap removes oldest entries
// by creation time (count-based, not strict LRU, to bound memory).
type InMemoryCache struct {
	mu         sync.RWMutex
	store      map[string]*CacheEntry
	maxEntries int
	clock      clock.Clock
}

// NewInMemoryCache creates a cache with the default entry cap.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithCap(DefaultMaxCacheEntries)
}

// NewInMemoryCacheWithCap creates a cache holding at most maxEntries routes.
func NewInMemoryCacheWithCap(maxEntries int) *InMemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	return &InMemoryCache{
		store:      make(map[string]*CacheEntry),
		maxEntries: maxEntries,
		clock:      clock.New(),
	}
}

// SetClock replaces the wall clock. Intended for tests; not safe to call
// concurrently with cache operations.
func (c *InMemoryCache) SetClock(clk clock.Clock) {
	c.clock = clk
}

// Get retrieves a live entry. Expired entries are purged lazily here.
func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	entry, exists := c.store[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if !c.clock.Now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a writer may have replaced the entry in between.
		if cur, ok := c.store[key]; ok && cur == entry {
			delete(c.store, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry, true
}

// Set stores an entry with the given TTL, evicting oldest entries if the
// cap is exceeded.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	now := c.clock.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.ExpiresAt = now.Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = entry
	for len(c.store) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the entry with the earliest creation time.
// Caller holds the write lock.
func (c *InMemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.store {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = k
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.store, oldestKey)
	}
}

// Delete removes a cache entry.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.store, key)
}

// Clear removes all cache entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

// Stats reports entry count and an approximate in-memory footprint.
func (c *InMemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bytes := 0
	for k, e := range c.store {
		bytes += len(k) + approxEntrySize(e)
	}
	return CacheStats{Count: len(c.store), ApproximateBytes: bytes}
}

// approxEntrySize estimates the heap footprint of an entry. Coordinates are
// two float64s; instructions are counted by string length.
func approxEntrySize(e *CacheEntry) int {
	const entryOverhead = 96
	if e == nil || e.Result == nil {
		return entryOverhead
	}
	size := entryOverhead + 16*len(e.Result.Geometry)
	for _, ins := range e.Result.Instructions {
		size += len(ins) + 16
	}
	return size
}
