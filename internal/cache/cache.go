// Package cache provides a bounded TTL cache with lazy and eager expiry.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"digifootprint/internal/metrics"
)

// Option configures a Cache.
type Option func(*options)

// DefaultComputeTimeout bounds a shared GetOrCompute computation.
const DefaultComputeTimeout = 2 * time.Minute

type options struct {
	maxSize        int
	now            func() time.Time
	computeTimeout time.Duration
}

// WithMaxSize bounds the number of entries; the least recently used entry is
// evicted once the bound is exceeded. Zero means unbounded.
func WithMaxSize(n int) Option {
	return func(o *options) { o.maxSize = n }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithComputeTimeout bounds the computation shared by GetOrCompute callers.
// Non-positive values keep DefaultComputeTimeout.
func WithComputeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.computeTimeout = d
		}
	}
}

// Cache is an LRU cache whose entries expire after a fixed TTL. Expired
// entries are rejected on read and are also removed by a timer scheduled at
// insertion.
type Cache[V any] struct {
	name    string
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	timeout time.Duration

	mu    sync.Mutex
	items map[string]*entry[V]
	lru   *list.List

	group singleflight.Group
}

type entry[V any] struct {
	key       string
	value     V
	storedAt  time.Time
	expiresAt time.Time
	element   *list.Element
	timer     *time.Timer
}

// New creates a cache. name labels the cache in metrics.
func New[V any](name string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now, computeTimeout: DefaultComputeTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		maxSize: o.maxSize,
		now:     o.now,
		timeout: o.computeTimeout,
		items:   make(map[string]*entry[V]),
		lru:     list.New(),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the cached value for key. An entry whose TTL has elapsed is
// never returned.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(item.expiresAt) {
		c.remove(item)
		metrics.CacheEvictions.WithLabelValues(c.name, "expired").Inc()
		return zero, false
	}
	c.lru.MoveToFront(item.element)
	return item.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[key]; ok {
		c.remove(existing)
	}

	now := c.now()
	item := &entry[V]{
		key:       key,
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
	item.element = c.lru.PushFront(item)
	item.timer = time.AfterFunc(c.ttl, func() { c.expire(item) })
	c.items[key] = item

	if c.maxSize > 0 && len(c.items) > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest.Value.(*entry[V]))
			metrics.CacheEvictions.WithLabelValues(c.name, "capacity").Inc()
		}
	}
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent callers for the same missing key share a single
// call to fn. fn runs detached from any one caller's cancellation and is
// bounded by the compute timeout; a caller whose ctx ends first returns
// ctx.Err() while the computation carries on for the others. When fn fails,
// its value and error are passed through and nothing is stored.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// another flight may have stored the key between Get and DoChan
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		v, err := fn(fctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[key]; ok {
		c.remove(item)
	}
}

// Len reports the number of stored entries, including any that have expired
// but have not been removed yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		item.timer.Stop()
	}
	c.items = make(map[string]*entry[V])
	c.lru.Init()
}

// expire is the eager deletion path. It only removes the exact entry it was
// scheduled for.
func (c *Cache[V]) expire(item *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.items[item.key]; ok && current == item {
		c.remove(item)
		metrics.CacheEvictions.WithLabelValues(c.name, "scheduled").Inc()
	}
}

// remove must be called with c.mu held.
func (c *Cache[V]) remove(item *entry[V]) {
	if item.timer != nil {
		item.timer.Stop()
	}
	delete(c.items, item.key)
	c.lru.Remove(item.element)
}
