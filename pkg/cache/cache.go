// Package cache provides the engine's caches: a generic thread-safe LRU,
// the AST cache keyed by a hash of the normalized filter source, and the
// persistent stores the AST cache can fall back to.
//
// The AST cache lets many evaluations share one parse of the same filter.
// Population is idempotent: two goroutines parsing the same source both
// store an equal tree, and the later write wins.
//
// # Example
//
//	c := cache.NewASTCache(1024)
//	expr, lookup, err := c.GetOrParse(ctx, `user_editcount < 10`, parser.Parse)
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 256

// entry is a cache entry stored in the doubly-linked list.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe least-recently-used cache. Once the capacity is
// reached, the least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type LRU[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[K]*list.Element
}

// NewLRU creates an LRU with the given capacity. A capacity <= 0 selects
// DefaultCapacity.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// Skip the write lock when the entry is already at the front.
	if ok && c.ll.Front() == el {
		v := el.Value.(*entry[K, V]).value
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}

	// Promote under the write lock; the entry may have been evicted meanwhile.
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok = c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Set inserts or replaces the value for key, evicting the least recently
// used entry when full.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = el
}

// GetOrCompute returns the cached value for key or calls compute, stores
// its result and returns it. Errors are not cached. Concurrent callers may
// compute the same key more than once.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of entries currently in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache.
func (c *LRU[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *LRU[K, V]) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
