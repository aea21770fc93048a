// Package cache is the process-wide response cache that sits between the portal and the REST backend.
//
// Entries expire lazily: an entry older than its TTL is only dropped when it is read again,
// purged by PurgeExpired, or pushed out by the max-entries bound.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-portal/core"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 10000
)

var NowFunc = time.Now // mockable

// Fetcher produces the value of a key missing from the cache.
type Fetcher func(ctx context.Context) (interface{}, error)

type entry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

type Option func(*Cache)

// WithTTL sets the default time-to-live of entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of entries; the least recently used entry is evicted when full.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithCoalescing makes racing misses on the same key share a single fetch.
// The shared fetch ignores the cancellation of the caller that started it, so one
// caller giving up does not fail the others; its deadline and values still apply.
func WithCoalescing(enabled bool) Option {
	return func(c *Cache) { c.coalesce = enabled }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// flight tracks the fetches of one key in progress.
// gen is bumped when the key is invalidated while they run.
type flight struct {
	fetches int
	gen     uint64
}

type Cache struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[string, entry]
	flights    map[string]*flight
	ttl        time.Duration
	maxEntries int
	coalesce   bool
	group      singleflight.Group
	logger     core.Logger
	metrics    *metrics
}

func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		logger:     core.NopLogger(),
		metrics:    newMetrics(),
		flights:    make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries, _ = simplelru.NewLRU[string, entry](c.maxEntries, nil) // size is always > 0
	return c
}

// NewFromConfig returns a Cache configured from conf.
func NewFromConfig(conf core.CacheConfig, logger core.Logger) *Cache {
	return New(
		WithTTL(conf.TTL),
		WithMaxEntries(conf.MaxEntries),
		WithCoalescing(conf.Coalesce),
		WithLogger(logger),
	)
}

// TTL returns the default time-to-live of entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key if it has not expired.
// An expired entry is removed.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	v, ok := c.get(key)
	c.mu.Unlock()

	if ok {
		c.metrics.hit()
	} else {
		c.metrics.miss()
	}
	return v, ok
}

func (c *Cache) get(key string) (interface{}, bool) {
	ent, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if ent.expired(NowFunc()) {
		c.entries.Remove(key)
		return nil, false
	}
	return ent.value, true
}

// Set stores value under key with the default TTL, replacing any previous entry.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, c.ttl)
}

func (c *Cache) set(key string, value interface{}, ttl time.Duration) {
	if evicted := c.entries.Add(key, entry{value: value, storedAt: NowFunc(), ttl: ttl}); evicted {
		c.metrics.evict()
	}
}

// Invalidate removes the entry stored under key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	removed := c.entries.Remove(key)
	c.staleFlight(key)
	c.mu.Unlock()

	c.group.Forget(key)
	if removed {
		c.metrics.invalidate(1)
	}
}

// InvalidatePattern removes every entry whose key contains substr.
// Key naming follows the colon-delimited convention in keys.go, so "assignment:7:" drops all of assignment 7.
func (c *Cache) InvalidatePattern(substr string) {
	c.mu.Lock()
	var n int
	for _, key := range c.entries.Keys() {
		if strings.Contains(key, substr) {
			c.entries.Remove(key)
			n++
		}
	}
	var inFlight []string
	for key := range c.flights {
		if strings.Contains(key, substr) {
			c.staleFlight(key)
			inFlight = append(inFlight, key)
		}
	}
	c.mu.Unlock()

	for _, key := range inFlight {
		c.group.Forget(key)
	}
	c.metrics.invalidate(n)
	c.logger.Debug(fmt.Sprintf("cache: invalidated %d entries matching %q", n, substr))
}

// Purge removes every entry, eg: when the user the cache was filled for changes.
func (c *Cache) Purge() {
	c.mu.Lock()
	n := c.entries.Len()
	c.entries.Purge()
	inFlight := make([]string, 0, len(c.flights))
	for key := range c.flights {
		c.staleFlight(key)
		inFlight = append(inFlight, key)
	}
	c.mu.Unlock()

	for _, key := range inFlight {
		c.group.Forget(key)
	}
	c.metrics.invalidate(n)
}

// GetOrFetch returns the value stored under key, or calls fetch, stores its result and returns it.
// ttl optionally overrides the default time-to-live of the stored entry.
//
// A failing fetch stores nothing and its error is returned as is.
// Without coalescing, racing misses all fetch and the last one to finish wins.
// A fetch that was in flight while its key got invalidated still returns its value but does not store it.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch Fetcher, ttl ...time.Duration) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if !c.coalesce {
		return c.fetch(ctx, key, fetch, ttl)
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.Lock()
		v, ok := c.get(key)
		c.mu.Unlock()
		if ok {
			return v, nil
		}
		return c.fetch(shared, key, fetch, ttl)
	})
	return v, err
}

func (c *Cache) fetch(ctx context.Context, key string, fetch Fetcher, ttl []time.Duration) (interface{}, error) {
	c.mu.Lock()
	gen := c.beginFlight(key)
	c.mu.Unlock()

	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.endFlight(key, gen)
	if err != nil {
		c.metrics.fetchError()
		return nil, err
	}
	if !current {
		c.logger.Debug(fmt.Sprintf("cache: dropping %q fetched across its invalidation", key))
		return v, nil
	}
	c.set(key, v, c.entryTTL(ttl))
	return v, nil
}

func (c *Cache) entryTTL(ttl []time.Duration) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return ttl[0]
	}
	return c.ttl
}

// flight helpers below must be called with mu held

func (c *Cache) beginFlight(key string) uint64 {
	f, ok := c.flights[key]
	if !ok {
		f = &flight{}
		c.flights[key] = f
	}
	f.fetches++
	return f.gen
}

// endFlight reports whether key was left alone since beginFlight returned gen.
func (c *Cache) endFlight(key string, gen uint64) bool {
	f := c.flights[key]
	current := f.gen == gen
	if f.fetches--; f.fetches == 0 {
		delete(c.flights, key)
	}
	return current
}

func (c *Cache) staleFlight(key string) {
	if f, ok := c.flights[key]; ok {
		f.gen++
	}
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := NowFunc()
	var n int
	for _, key := range c.entries.Keys() {
		if ent, ok := c.entries.Peek(key); ok && ent.expired(now) {
			c.entries.Remove(key)
			n++
		}
	}
	return n
}

// Sweep purges expired entries every interval until ctx is done.
// A non-positive interval sweeps once per default TTL.
func (c *Cache) Sweep(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = c.ttl
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.PurgeExpired(); n > 0 {
				c.logger.Debug(fmt.Sprintf("cache: swept %d expired entries", n))
			}
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return c.metrics.snapshot()
}

// Fetch is the typed counterpart of Cache.GetOrFetch.
// If key holds a value of another type, it is refetched and overwritten.
func Fetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error), ttl ...time.Duration) (T, error) {
	v, err := c.GetOrFetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	}, ttl...)
	if err != nil {
		var zero T
		return zero, err
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	c.logger.Warn(fmt.Sprintf("cache: %q holds a %T, refetching", key, v))
	v, err = c.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	}, ttl)
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}
