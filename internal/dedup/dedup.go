// Package dedup keeps an in-memory set of article identifiers already seen,
// seeded from the database at the start of each collection run.
package dedup

import "sync"

// Cache is a concurrency-safe identifier set.
type Cache struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{ids: make(map[string]struct{})}
}

// Seed replaces the cache contents with the given identifiers.
func (c *Cache) Seed(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		c.ids[id] = struct{}{}
	}
}

// Contains reports whether the identifier has been seen.
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// Add marks an identifier as seen.
func (c *Cache) Add(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id] = struct{}{}
}

// Len returns the number of identifiers tracked.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
