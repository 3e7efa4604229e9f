// Package cache provides a thread-safe LRU cache with optional idle expiry.
//
// The evaluator uses it twice: to memoize compiled expressions by source
// text, and to memoize the results of deterministic function calls for the
// lifetime of a dynamic context. Entries that have not been accessed for
// longer than the idle timeout are treated as absent and dropped.
//
// # Example
//
//	c := cache.New[string, *evaluator.Expression](1024)
//	expr, err := c.GetOrCompute("//control[@id = 'ac-1']", compile)
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// entry is a cache entry stored in the doubly-linked list.
type entry[K comparable, V any] struct {
	key        K
	value      V
	lastAccess time.Time
}

// Cache is an LRU cache. Once the capacity is reached, the least recently
// accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	idle     time.Duration
	now      func() time.Time
	ll       *list.List
	items    map[K]*list.Element
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	idle time.Duration
	now  func() time.Time
}

// WithIdleTimeout expires entries not accessed for d. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idle = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache with the given capacity.
// If capacity <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int, opts ...Option) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		capacity: capacity,
		idle:     o.idle,
		now:      o.now,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(el)
		return zero, false
	}
	e.lastAccess = now
	c.ll.MoveToFront(el)
	return e.value, true
}

// Set inserts or replaces a value.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.lastAccess = now
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked(now)
	}

	el := c.ll.PushFront(&entry[K, V]{key: key, value: value, lastAccess: now})
	c.items[key] = el
}

// GetOrCompute returns the value for key, calling compute to create and
// store it when absent. Errors are not cached.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
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

// Len returns the number of entries currently in the cache, including
// expired entries not yet dropped.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.idle > 0 && now.Sub(e.lastAccess) > c.idle
}

// evictLocked drops expired entries from the tail, or the least recently
// used entry if none expired. Must be called with c.mu held.
func (c *Cache[K, V]) evictLocked(now time.Time) {
	evicted := false
	for el := c.ll.Back(); el != nil && c.expired(el.Value.(*entry[K, V]), now); el = c.ll.Back() {
		c.removeLocked(el)
		evicted = true
	}
	if !evicted {
		if el := c.ll.Back(); el != nil {
			c.removeLocked(el)
		}
	}
}

func (c *Cache[K, V]) removeLocked(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
