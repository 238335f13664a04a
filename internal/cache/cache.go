// Package cache is a small TTL key-value cache for query results. It holds
// no authoritative data: anything in it can be rebuilt from the store, so
// mutations just clear it wholesale.
package cache

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxSize caps the number of cached entries.
	DefaultMaxSize = 100
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL = 30 * time.Second
	// SearchTTL is the shorter lifetime used for search results.
	SearchTTL = 15 * time.Second
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL cache with insertion-order eviction at capacity.
// Expired entries are evicted lazily on read.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // insertion order, oldest first; may hold stale keys
	maxSize int
	now     func() time.Time
}

// New creates a cache with the given capacity; maxSize <= 0 uses DefaultMaxSize.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the cached value, or nil if the key is missing or expired.
func (c *Cache) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e.value
}

// Set stores a value. At capacity the oldest-inserted entry is evicted first.
// Re-setting an existing key keeps its original insertion position.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &entry{value: value, expiresAt: c.now().Add(ttl)}
	c.order = append(c.order, key)
}

// evictOldest drops the oldest key still present. Caller holds the lock.
func (c *Cache) evictOldest() {
	for len(c.order) > 0 {
		key := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			return
		}
	}
}

// Invalidate clears every entry whose key contains pattern; an empty pattern
// clears the whole cache.
func (c *Cache) Invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.entries = make(map[string]*entry)
		c.order = nil
		return
	}
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
}

// Stats reports current occupancy.
func (c *Cache) Stats() (size, maxSize int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), c.maxSize
}
