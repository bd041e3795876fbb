// Package cache provides a generic in-memory store with a fixed TTL per
// cache, lazy expiry on reads and a background sweep for entries nobody
// asks for again.
package cache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sahalkhalani/WeatherKI-backend/internal/observability"
)

const defaultSweepInterval = time.Minute

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Stats is a point-in-time census of a cache. Expired entries are ones
// the sweep has not collected yet.
type Stats struct {
	Total   int
	Valid   int
	Expired int
	TTL     time.Duration
}

// Entry is a read-only view of a live cache entry, used by the
// inspection endpoint. Values are copied out under the read lock.
type Entry[V any] struct {
	Key   string
	Value V
	Age   time.Duration
}

type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	ttl   time.Duration
	name  string

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once

	now func() time.Time
}

type options struct {
	sweepInterval time.Duration
	sweep         bool
	name          string
}

type Option func(*options)

// WithSweepInterval overrides how often the background sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// WithName labels the cache in sweep logs and eviction metrics.
// Unnamed caches stay out of the metrics registry.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithoutSweep disables the background goroutine. Expired entries are
// then only collected lazily on reads or via RemoveExpired.
func WithoutSweep() Option {
	return func(o *options) { o.sweep = false }
}

// New creates a cache whose entries expire ttl after they were stored.
// A non-positive ttl means entries never expire. Callers must Stop the
// cache when done with it.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{sweepInterval: defaultSweepInterval, sweep: true}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache[V]{
		items:         make(map[string]entry[V]),
		ttl:           ttl,
		name:          o.name,
		sweepInterval: o.sweepInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
	}
	if o.sweep {
		go c.sweep()
	}
	return c
}

// Set stores value under key, resetting the entry's age if it already
// existed.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Get returns the value stored under key if it exists and has not
// expired. An expired entry is removed on the way out and reported as a
// miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, c.now()) {
		evicted := false
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry since we released the read lock.
		if cur, ok := c.items[key]; ok && c.expired(cur, c.now()) {
			delete(c.items, key)
			evicted = true
		}
		c.mu.Unlock()
		if evicted {
			c.countEvictions(1)
		}
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds a live entry, evicting it like Get
// does when it turns out to be expired.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key unconditionally and reports whether an entry was
// actually there.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Clear drops every entry, live or expired.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Total: len(c.items), TTL: c.ttl}
	for _, e := range c.items {
		if c.expired(e, now) {
			s.Expired++
		} else {
			s.Valid++
		}
	}
	return s
}

// Snapshot lists the live entries sorted by key. Expired entries are
// skipped but not evicted; inspection must not mutate the cache.
func (c *Cache[V]) Snapshot() []Entry[V] {
	now := c.now()
	c.mu.RLock()
	out := make([]Entry[V], 0, len(c.items))
	for k, e := range c.items {
		if c.expired(e, now) {
			continue
		}
		out = append(out, Entry[V]{Key: k, Value: e.value, Age: now.Sub(e.storedAt)})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RemoveExpired evicts every expired entry and reports how many were
// removed. The background sweep and the cache maintenance endpoint both
// go through here.
func (c *Cache[V]) RemoveExpired() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, k)
			removed++
		}
	}
	c.mu.Unlock()
	c.countEvictions(removed)
	return removed
}

// Stop terminates the background sweep. Safe to call more than once;
// the cache itself remains usable afterwards.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

func (c *Cache[V]) countEvictions(n int) {
	if n > 0 && c.name != "" {
		observability.CacheEvictions.WithLabelValues(c.name).Add(float64(n))
	}
}

func (c *Cache[V]) sweep() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.RemoveExpired(); n > 0 {
				slog.Debug("cache sweep evicted expired entries", "cache", c.name, "removed", n)
			}
		case <-c.stop:
			return
		}
	}
}
