package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Stats reports verdict cache effectiveness
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// MemoryCache keeps verdicts in process, backed by go-cache
type MemoryCache struct {
	items  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoryCache creates a memory cache; a non-positive defaultTTL never expires
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the stored bytes and counts the lookup
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if v, ok := c.items.Get(key); ok {
		if data, ok := v.([]byte); ok {
			c.hits.Add(1)
			return data, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores value; ttl 0 uses the default, negative never expires
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = gocache.DefaultExpiration
	case ttl < 0:
		ttl = gocache.NoExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

// Delete drops key
func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

// Clear drops every entry and resets the counters
func (c *MemoryCache) Clear() error {
	c.items.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

// Len returns the number of entries, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// Stats returns hit and miss counts since creation or the last Clear
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.items.ItemCount(),
	}
}
