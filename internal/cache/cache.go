// Package cache provides a small in-process cache with explicit invalidation.
// Instances are built once at startup and injected into consumers.
package cache

import "sync"

// Cache is a concurrency-safe map stamped with an invalidation generation.
// The zero value is not usable; call New.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	gen   uint64
}

// New returns an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V)}
}

// Get returns the cached value for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[k]
	return v, ok
}

// Generation returns the current invalidation stamp. Take it before reading
// the source a value is built from and hand it to PutAt.
func (c *Cache[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Put stores v under k unconditionally.
func (c *Cache[K, V]) Put(k K, v V) {
	c.mu.Lock()
	c.items[k] = v
	c.mu.Unlock()
}

// PutAt stores v under k only if no invalidation happened since gen was
// taken. It reports whether the value was stored.
func (c *Cache[K, V]) PutAt(k K, v V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.items[k] = v
	return true
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Delete removes k and bumps the generation.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.items, k)
	c.gen++
	c.mu.Unlock()
}

// DeleteFunc removes every key for which match returns true, bumps the
// generation and reports how many entries were removed.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if match(k) {
			delete(c.items, k)
			n++
		}
	}
	c.gen++
	return n
}
