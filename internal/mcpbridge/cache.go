package mcpbridge

import (
	"encoding/json"
	"sync"
	"time"
)

// cacheEntry holds a translated tools/list result.
type cacheEntry struct {
	result    json.RawMessage
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// toolsCache is an in-memory TTL cache of tools/list results keyed by the
// request params. Expired entries are dropped on the next set.
type toolsCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newToolsCache(ttl time.Duration) *toolsCache {
	return &toolsCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// get looks up a live entry by params key.
func (c *toolsCache) get(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired() {
		return nil, false
	}
	return e.result, true
}

// set stores result under key.
func (c *toolsCache) set(key string, result json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.entries[key] = &cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// invalidate removes a specific entry from the cache.
func (c *toolsCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// evictLocked removes all expired entries. c.mu must be held.
func (c *toolsCache) evictLocked() int {
	n := 0
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len returns the number of cached entries (including expired).
func (c *toolsCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
