package http

import (
	"sync"
	"time"
)

// ttlCache is a small expiring cache keyed by string. Expired entries are
// evicted lazily on access; when the map outgrows maxSize it is reset
// wholesale, which keeps the implementation free of background timers.
type ttlCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]cacheItem[T]
}

type cacheItem[T any] struct {
	data      T
	expiresAt time.Time
}

func newTTLCache[T any](maxSize int, ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]cacheItem[T]),
	}
}

func (c *ttlCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	item, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if time.Now().After(item.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return item.data, true
}

func (c *ttlCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.items = make(map[string]cacheItem[T])
	}
	c.items[key] = cacheItem[T]{
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *ttlCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}
