package resolve

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CacheStats is a point-in-time snapshot of cache behavior.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	MaxSize   int
	HitRate   float64
}

// Cache memoizes resolved schemas by reference pointer or structural
// signature. Entries are immutable once stored: a cached *Schema is shared
// between callers and must never be mutated.
//
// GetOrCompute serializes computation per key through singleflight, so two
// concurrent resolutions of the same key run the computation once.
type Cache struct {
	enabled bool
	maxSize int

	mu  sync.Mutex
	lru *lru.Cache[string, *Schema]

	group singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	clearing  atomic.Bool

	metrics *Metrics
}

// NewCache builds a cache with the given capacity. A disabled cache is
// inert: every lookup misses and nothing is stored.
func NewCache(enabled bool, maxSize int, metrics *Metrics) *Cache {
	c := &Cache{enabled: enabled, maxSize: maxSize, metrics: metrics}
	if !enabled {
		return c
	}

	backing, err := lru.NewWithEvict(maxSize, func(string, *Schema) {
		if c.clearing.Load() {
			return
		}
		c.evictions.Add(1)
		c.metrics.incCacheEviction()
	})
	if err != nil {
		// Only reachable with a non-positive size, which withDefaults rules
		// out; fall back to a disabled cache rather than panicking.
		c.enabled = false
		return c
	}
	c.lru = backing
	return c
}

// GetOrCompute returns the cached schema for key, computing and storing it
// on a miss. Errors are not cached; a failed computation is retried on the
// next call.
func (c *Cache) GetOrCompute(key string, compute func() (*Schema, error)) (*Schema, error) {
	if !c.enabled {
		return compute()
	}

	if s, ok := c.lookup(key); ok {
		c.hits.Add(1)
		c.metrics.incCacheHit()
		return s, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent flight may have stored the entry between our lookup
		// and joining the flight.
		if s, ok := c.lookup(key); ok {
			c.hits.Add(1)
			c.metrics.incCacheHit()
			return s, nil
		}

		c.misses.Add(1)
		c.metrics.incCacheMiss()

		s, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

// Add stores an already-computed schema.
func (c *Cache) Add(key string, s *Schema) {
	if !c.enabled {
		return
	}
	c.store(key, s)
}

// peek looks up a key without touching hit/miss counters. Used by the
// composer for opportunistic reuse of nested results.
func (c *Cache) peek(key string) (*Schema, bool) {
	return c.lookup(key)
}

func (c *Cache) lookup(key string) (*Schema, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

func (c *Cache) store(key string, s *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, s)
}

// EvictTo removes least-recently-used entries until at most n remain. The
// memory controller uses this to shed weight under pressure.
func (c *Cache) EvictTo(n int) {
	if !c.enabled {
		return
	}
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.lru.Len() > n {
		c.lru.RemoveOldest()
	}
}

// Clear drops every entry. Cleared entries do not count as evictions.
func (c *Cache) Clear() {
	if !c.enabled {
		return
	}
	c.clearing.Store(true)
	defer c.clearing.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	if !c.enabled {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	stats := CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		MaxSize:   c.maxSize,
		Size:      c.Len(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
