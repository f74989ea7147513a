package cache

import (
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type entry[V any] struct {
	value V
	cost  int64
}

// Cache is a generic thread-safe LRU cache bounded by total entry cost.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	lru   *simplelru.LRU[K, entry[V]]
	limit int64
	cost  int64

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most limit total cost.
// A limit of 0 means unlimited.
func New[K comparable, V any](limit int64) *Cache[K, V] {
	c := &Cache[K, V]{limit: limit}
	// Entry count is unbounded; cost is trimmed in Set.
	l, err := simplelru.NewLRU[K, entry[V]](math.MaxInt, func(_ K, e entry[V]) {
		c.cost -= e.cost
	})
	if err != nil {
		panic(err) // only for a non-positive size
	}
	c.lru = l
	return c
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores a value with the given cost, replacing any previous value for
// key. It reports false if cost alone exceeds the limit; the key is then
// absent from the cache.
func (c *Cache[K, V]) Set(key K, value V, cost int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	if c.limit > 0 && cost > c.limit {
		return false
	}

	c.lru.Add(key, entry[V]{value: value, cost: cost})
	c.cost += cost

	for c.limit > 0 && c.cost > c.limit {
		c.lru.RemoveOldest()
		c.evictions++
	}
	return true
}

// Delete removes an entry. Returns true if the entry was found.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Cost returns the total cost of stored entries.
func (c *Cache[K, V]) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:       c.lru.Len(),
		Cost:      c.cost,
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Cost is the total cost of stored entries.
	Cost int64
	// Limit is the configured cost limit (0 = unlimited).
	Limit int64
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// Evictions is the number of entries dropped to stay within Limit.
	Evictions uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
