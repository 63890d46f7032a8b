// Package cache provides the time-bounded key-value store shared by the
// result cache and the session cache.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a capacity-bounded cache with lazy expiry. When full, Set evicts
// the single entry that expires soonest. There is no background sweep.
//
// Concurrent callers are safe in the memory-model sense, but GetOrCompute
// does not coalesce misses: two callers missing the same key both compute
// and the later Set wins.
type TTL[V any] struct {
	mu       sync.Mutex
	items    map[string]entry[V]
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

func NewTTL[V any](ttl time.Duration, maxItems int) *TTL[V] {
	if maxItems < 1 {
		maxItems = 1
	}
	return &TTL[V]{
		items:    make(map[string]entry[V], maxItems),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get returns the value for key if present and unexpired. An expired entry
// is evicted on the way out.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if e.expiresAt.Before(c.now()) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with expiry now+ttl.
func (c *TTL[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with expiry now+ttl, capped at the
// cache's own ttl. A non-positive ttl falls back to the cache's ttl.
func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictSoonestLocked()
	}
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes key if present.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[V]) evictSoonestLocked() {
	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, e := range c.items {
		if !found || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}

// GetOrCompute returns the cached value for key, or runs compute, stores
// its result and returns it. Errors are returned without caching.
func (c *TTL[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
