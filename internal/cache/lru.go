// Package cache provides the bounded read-through cache used in front of the
// record index.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 500

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Len       int   `json:"len"`
	Capacity  int   `json:"capacity"`
}

// LRU is a capacity-bounded cache with least-recently-used eviction. It is
// never the source of truth; owners evict or clear it on mutation.
type LRU[K comparable, V any] struct {
	inner    *lru.Cache[K, V]
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New constructs a cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[K, V](capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes, excluded above.
		panic(err)
	}
	return &LRU[K, V]{inner: inner, capacity: capacity}
}

// Get returns the cached value and marks it most recently used. A miss does
// not insert anything.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set inserts or replaces key, evicting the least recently used entry when
// the cache is over capacity.
func (c *LRU[K, V]) Set(key K, value V) {
	if evicted := c.inner.Add(key, value); evicted {
		c.evictions.Add(1)
	}
}

// Delete removes key unconditionally.
func (c *LRU[K, V]) Delete(key K) {
	c.inner.Remove(key)
}

// Clear empties the cache. Counters are kept.
func (c *LRU[K, V]) Clear() {
	c.inner.Purge()
}

// contains reports presence without touching recency.
func (c *LRU[K, V]) contains(key K) bool {
	return c.inner.Contains(key)
}

// keys returns the cached keys from least to most recently used.
func (c *LRU[K, V]) keys() []K {
	return c.inner.Keys()
}

// Len reports the number of cached entries.
func (c *LRU[K, V]) Len() int { return c.inner.Len() }

// Stats returns the current counters.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.inner.Len(),
		Capacity:  c.capacity,
	}
}
