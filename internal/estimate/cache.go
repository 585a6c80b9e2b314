package estimate

import "sync"

// Cache is an in-memory store of computed estimates keyed by the full
// parameter set. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]PowerEstimate
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]PowerEstimate)}
}

// Get returns the cached estimate for key, if present.
func (c *Cache) Get(key Key) (PowerEstimate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	est, ok := c.entries[key]
	return est, ok
}

// Set stores an estimate under key. Entries are immutable in practice; a
// repeated Set with the same key writes an identical value.
func (c *Cache) Set(key Key, est PowerEstimate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = est
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]PowerEstimate)
}

// Len reports the number of cached estimates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot copies the current contents for persistence.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for k, v := range c.entries {
		out = append(out, Entry{Key: k, Estimate: v})
	}
	return out
}

// Restore loads previously persisted entries, skipping any whose key was
// produced by a different model version.
func (c *Cache) Restore(entries []Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.Key.ModelVersion != ModelVersion {
			continue
		}
		c.entries[e.Key] = e.Estimate
		n++
	}
	return n
}
