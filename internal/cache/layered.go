package cache

import (
	"errors"
	"time"
)

// expiringGetter is implemented by layers that know when an entry expires
type expiringGetter interface {
	GetWithExpiration(key string) ([]byte, time.Time, bool)
}

// LayeredCache serves verdicts from memory and falls back to a persistent layer
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache puts front (fast) before back (persistent)
func NewLayeredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get promotes back-layer hits into front, keeping their remaining lifetime
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.front.Get(key); ok {
		return v, true
	}

	if eg, ok := c.back.(expiringGetter); ok {
		v, expires, found := eg.GetWithExpiration(key)
		if !found {
			return nil, false
		}
		ttl := time.Duration(-1)
		if !expires.IsZero() {
			if ttl = time.Until(expires); ttl <= 0 {
				return nil, false
			}
		}
		_ = c.front.Set(key, v, ttl)
		return v, true
	}

	v, ok := c.back.Get(key)
	if ok {
		_ = c.front.Set(key, v, 0)
	}
	return v, ok
}

// Set writes through to both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

// Delete removes key from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}
