// Package cache implements the bounded, single-flight memoization used
// by both the tile cache (§4.3) and the PMTiles directory cache
// (§4.5.4). The single-flight dedup is golang.org/x/sync/singleflight,
// the idiom used in vosatom-gisquick-server-next's mapcache service;
// eviction is hashicorp/golang-lru/v2's Cache, sized by an
// application-supplied cost function rather than by entry count.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache is a byte-budget-bounded, concurrency-safe associative store
// with single-flight compute-on-miss semantics. K must be comparable.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   *lru.Cache[K, V]
	cost      func(V) int
	budget    int
	used      int
	flight    singleflight.Group
	keyString func(K) string
}

// New creates a Cache bounded by budget cost units (as returned by
// cost). keyString renders K to a string for the singleflight group's
// key space (singleflight keys on string).
func New[K comparable, V any](budget int, cost func(V) int, keyString func(K) string) *Cache[K, V] {
	// capacity is a count-based ceiling only used as a backstop; actual
	// eviction is driven by the byte-budget check in set().
	backstop, _ := lru.New[K, V](1 << 20)
	return &Cache[K, V]{
		entries:   backstop,
		cost:      cost,
		budget:    budget,
		keyString: keyString,
	}
}

// GetOrCompute returns the cached value for key, or computes it via fn
// if absent. Concurrent callers requesting the same key observe a
// single execution of fn; a failing fn is never cached and all waiters
// observe the same error.
func (c *Cache[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error, bool) {
	c.mu.Lock()
	if v, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return v, nil, true
	}
	c.mu.Unlock()

	result, err, shared := c.flight.Do(c.keyString(key), func() (any, error) {
		v, err := fn()
		if err != nil {
			return v, err
		}
		c.set(key, v)
		return v, nil
	})
	_ = shared
	v, _ := result.(V)
	return v, err, false
}

// Get returns the cached value for key without triggering a compute.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

func (c *Cache[K, V]) set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entryCost := c.cost(v)
	c.entries.Add(key, v)
	c.used += entryCost

	for c.used > c.budget && c.entries.Len() > 0 {
		evKey, evVal, ok := c.entries.RemoveOldest()
		if !ok {
			break
		}
		c.used -= c.cost(evVal)
		_ = evKey
	}
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// RemoveMatching evicts every cached entry whose key satisfies pred, used
// to purge a single archive's directories on stale-ETag detection (§4.5.4)
// without flushing the whole shared cache.
func (c *Cache[K, V]) RemoveMatching(pred func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.entries.Keys() {
		if !pred(k) {
			continue
		}
		if v, ok := c.entries.Peek(k); ok {
			c.used -= c.cost(v)
		}
		c.entries.Remove(k)
	}
}
