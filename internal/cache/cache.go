// Package cache provides the small TTL-bounded, LRU-evicted result caches
// shared by the search paths: one for full search result sets, one for
// conversation previews.
package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convoarchive_cache_hits_total",
			Help: "Total number of cache hits, by cache name.",
		},
		[]string{"cache"},
	)
	cacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convoarchive_cache_misses_total",
			Help: "Total number of cache misses, by cache name.",
		},
		[]string{"cache"},
	)
	cacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "convoarchive_cache_size",
			Help: "Current number of entries held by a cache, by cache name.",
		},
		[]string{"cache"},
	)
)

// Cloner copies a value so cached state is never shared with callers.
type Cloner[V any] func(V) V

type entry[V any] struct {
	value        V
	expiresAt    time.Time
	lastAccessed time.Time
}

// Cache is a fixed-capacity, TTL-bounded, LRU-evicted map guarded by one
// reader-writer lock. Every write holds the write lock: LRU bookkeeping on
// read mutates recency, so a plain read lock is not sufficient.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	name       string
	entries    map[K]*entry[V]
	ttl        time.Duration
	maxEntries int
	clone      Cloner[V]
}

// New returns an empty cache named name (used only for metric labeling)
// with the given ttl and capacity. clone is applied to every value
// returned from Get.
func New[K comparable, V any](name string, ttl time.Duration, maxEntries int, clone Cloner[V]) *Cache[K, V] {
	return &Cache[K, V]{
		name:       name,
		entries:    make(map[K]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		clone:      clone,
	}
}

// Get returns a clone of the cached value for key. A present-but-expired
// entry is removed and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		cacheMissesTotal.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		cacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
		cacheMissesTotal.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}

	e.lastAccessed = time.Now()
	cacheHitsTotal.WithLabelValues(c.name).Inc()
	return c.clone(e.value), true
}

// Set inserts or replaces the entry for key, resetting its expiry.
// Inserting a new key at capacity evicts the least-recently-used entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRULocked()
	}

	c.entries[key] = &entry[V]{
		value:        c.clone(value),
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
	cacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// EvictExpired removes every entry whose expiry is in the past and
// returns how many were removed. Called by background maintenance.
func (c *Cache[K, V]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	cacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return removed
}

// Len reports the current entry count.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) evictLRULocked() {
	var oldestKey K
	var oldestTime time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
