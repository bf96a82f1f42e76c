// Package cache provides caching for upstream API responses
// to improve performance and reduce external API calls.
package cache

import (
	"sync"
	"time"
)

// TTLCache is a generic thread-safe cache with time-based expiration and a
// bounded item count. When the bound is exceeded the entries closest to
// expiry are evicted first.
type TTLCache[K comparable, V any] struct {
	mu          sync.RWMutex
	items       map[K]item[V]
	ttl         time.Duration
	maxItems    int
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates a cache with the specified TTL and cleanup interval.
// maxItems bounds the cache size; zero means unbounded. A non-positive
// cleanup interval disables the background sweep (expired entries are still
// dropped lazily on Get).
func New[K comparable, V any](ttl, cleanupInterval time.Duration, maxItems int) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		items:       make(map[K]item[V]),
		ttl:         ttl,
		maxItems:    maxItems,
		stopCleanup: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

// Get retrieves a value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !found {
		return zero, false
	}
	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return zero, false
	}
	return it.value, true
}

// Set adds a value with the configured TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictOldest()
	}
}

// Delete removes a value from the cache.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of items in the cache.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items from the cache.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]item[V])
	c.mu.Unlock()
}

// Stop terminates the background cleanup goroutine. Safe to call more than
// once.
func (c *TTLCache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// evictOldest removes the entries closest to expiry until the cache fits
// maxItems again. Caller must hold the write lock.
func (c *TTLCache[K, V]) evictOldest() {
	for len(c.items) > c.maxItems {
		var oldestKey K
		var oldestAt time.Time
		first := true
		for k, it := range c.items {
			if first || it.expiresAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = it.expiresAt
				first = false
			}
		}
		delete(c.items, oldestKey)
	}
}

func (c *TTLCache[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *TTLCache[K, V]) deleteExpired() {
	now := time.Now()
	c.mu.Lock()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
