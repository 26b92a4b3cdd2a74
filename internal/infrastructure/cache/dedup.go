package cache

import (
	"sync"

	"github.com/decred/dcrd/lru"
)

const defaultDedupCacheSize = 100000

// DedupCache remembers the most recently seen transfer keys so redelivered
// events are ingested once. Keys evicted from the cache fall back to the
// ledger store's unique constraint.
type DedupCache struct {
	mu    sync.Mutex
	cache lru.Cache
}

// NewDedupCache returns a cache holding up to size keys.
func NewDedupCache(size uint) *DedupCache {
	if size == 0 {
		size = defaultDedupCacheSize
	}
	return &DedupCache{cache: lru.NewCache(size)}
}

// SeenOrAdd reports whether key was already present and records it otherwise.
func (c *DedupCache) SeenOrAdd(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache.Contains(key) {
		return true
	}
	c.cache.Add(key)
	return false
}

// Forget drops a key, used when ingesting it failed after it was recorded.
func (c *DedupCache) Forget(key string) {
	c.mu.Lock()
	c.cache.Delete(key)
	c.mu.Unlock()
}

// Reset drops every key.
func (c *DedupCache) Reset(size uint) {
	if size == 0 {
		size = defaultDedupCacheSize
	}
	c.mu.Lock()
	c.cache = lru.NewCache(size)
	c.mu.Unlock()
}
