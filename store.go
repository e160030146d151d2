package parkfind

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// storeKeyPrefix namespaces route entries inside a shared key-value store.
const storeKeyPrefix = "route:"

// MemoryStore is an in-memory KeyValueStore. Useful for tests and as a
// reference implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// PersistentCache decorates a Cache with write-through persistence so
// resolved routes survive process restarts. Every store failure is logged
// and swallowed: cache correctness never depends on the store.
type PersistentCache struct {
	inner  Cache
	store  KeyValueStore
	logger Logger
	clock  clock.Clock
}

// NewPersistentCache wraps inner with the given store and warms it from any
// previously persisted entries. A nil logger silences store failures.
func NewPersistentCache(inner Cache, store KeyValueStore, logger Logger) *PersistentCache {
	pc := &PersistentCache{
		inner:  inner,
		store:  store,
		logger: logger,
		clock:  clock.New(),
	}
	pc.warm()
	return pc
}

// warm loads persisted entries into the inner cache, skipping anything
// expired or undecodable.
func (pc *PersistentCache) warm() {
	keys, err := pc.store.Keys(storeKeyPrefix)
	if err != nil {
		pc.logWarn("cache warm failed", "error", err)
		return
	}

	now := pc.clock.Now()
	for _, storeKey := range keys {
		raw, ok, err := pc.store.Get(storeKey)
		if err != nil || !ok {
			continue
		}

		var entry CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			pc.logWarn("dropping undecodable cache entry", "key", storeKey, "error", err)
			_ = pc.store.Delete(storeKey)
			continue
		}

		remaining := entry.ExpiresAt.Sub(now)
		if remaining <= 0 {
			_ = pc.store.Delete(storeKey)
			continue
		}

		pc.inner.Set(strings.TrimPrefix(storeKey, storeKeyPrefix), &entry, remaining)
	}
}

func (pc *PersistentCache) Get(key string) (*CacheEntry, bool) {
	return pc.inner.Get(key)
}

func (pc *PersistentCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	pc.inner.Set(key, entry, ttl)

	raw, err := json.Marshal(entry)
	if err != nil {
		pc.logWarn("cache persist encode failed", "key", key, "error", err)
		return
	}
	if err := pc.store.Set(storeKeyPrefix+key, raw); err != nil {
		pc.logWarn("cache persist failed", "key", key, "error", err)
	}
}

func (pc *PersistentCache) Delete(key string) {
	pc.inner.Delete(key)
	if err := pc.store.Delete(storeKeyPrefix + key); err != nil {
		pc.logWarn("cache delete persist failed", "key", key, "error", err)
	}
}

func (pc *PersistentCache) Clear() {
	pc.inner.Clear()

	keys, err := pc.store.Keys(storeKeyPrefix)
	if err != nil {
		pc.logWarn("cache clear persist failed", "error", err)
		return
	}
	for _, k := range keys {
		if err := pc.store.Delete(k); err != nil {
			pc.logWarn("cache clear persist failed", "key", k, "error", err)
		}
	}
}

func (pc *PersistentCache) Stats() CacheStats {
	return pc.inner.Stats()
}

func (pc *PersistentCache) logWarn(msg string, keysAndValues ...interface{}) {
	if pc.logger != nil {
		pc.logger.Warn(msg, keysAndValues...)
	}
}
