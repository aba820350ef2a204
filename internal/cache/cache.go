// Package cache provides a keyed TTL cache whose fetches are deduplicated
// per key and stamped with a generation, so a superseded fetch can never
// overwrite the result of a newer one.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Data      V
	Timestamp time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *Metrics
}

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics records lookups in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// flightToken identifies one fetch: the key's generation and the cache
// epoch at the time it started.
type flightToken struct {
	gen   uint64
	epoch uint64
}

// Cache maps keys to timestamped values with a fixed time-to-live.
type Cache[K ~string, V any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  map[K]Entry[V]
	gens     map[K]uint64
	inflight map[K]flightToken
	epoch    uint64
	onFill   func(K, V)

	flights singleflight.Group
	metrics *Metrics
}

// New creates a cache whose entries are fresh for ttl.
func New[K ~string, V any](name string, ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		name:     name,
		ttl:      ttl,
		now:      o.now,
		entries:  make(map[K]Entry[V]),
		gens:     make(map[K]uint64),
		inflight: make(map[K]flightToken),
		metrics:  o.metrics,
	}
}

// OnFill registers fn to run whenever a fetch result is committed. It runs
// under the cache lock, after the generation check, and must not call back
// into the cache.
func (c *Cache[K, V]) OnFill(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFill = fn
}

func (c *Cache[K, V]) isFresh(e Entry[V]) bool {
	return c.now().Sub(e.Timestamp) < c.ttl
}

// Fresh returns the cached value for key if it is within the TTL.
func (c *Cache[K, V]) Fresh(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.isFresh(e) {
		var zero V
		return zero, false
	}
	return e.Data, true
}

// Peek returns the entry for key regardless of age.
func (c *Cache[K, V]) Peek(key K) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores v under key stamped with the current time.
func (c *Cache[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Data: v, Timestamp: c.now()}
}

// Delete evicts key and supersedes any fetch in flight for it.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
	delete(c.inflight, key)
}

// Reset evicts everything and supersedes every fetch in flight.
func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]Entry[V])
	c.inflight = make(map[K]flightToken)
	c.epoch++
}

// Loading reports whether a current fetch for key is in flight.
func (c *Cache[K, V]) Loading(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

// Len returns the number of cached entries, fresh or stale.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrFetch returns the fresh cached value for key, or runs fetch. Callers
// asking for the same key while a fetch is in flight share its result.
// With force set, the entry is evicted and a new generation begins, so any
// older fetch still in flight is discarded when it completes. A failed
// current fetch evicts the entry.
//
// The fetch runs detached from the caller's cancellation so that joined
// callers are not failed by the one that started it; each caller stops
// waiting when its own ctx is done, and the fetch still commits.
func (c *Cache[K, V]) GetOrFetch(
	ctx context.Context,
	key K,
	fetch func(context.Context) (V, error),
	force bool,
) (V, error) {
	c.mu.Lock()
	if force {
		delete(c.entries, key)
		c.gens[key]++
	} else if e, ok := c.entries[key]; ok && c.isFresh(e) {
		c.mu.Unlock()
		c.metrics.observe(c.name, resultHit)
		return e.Data, nil
	}
	token := flightToken{gen: c.gens[key], epoch: c.epoch}
	c.mu.Unlock()

	flightKey := string(key) + "#" + strconv.FormatUint(token.gen, 10) + "#" + strconv.FormatUint(token.epoch, 10)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(flightKey, func() (interface{}, error) {
		c.mu.Lock()
		c.inflight[key] = token
		c.mu.Unlock()

		data, err := fetch(fetchCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[key] == token {
			delete(c.inflight, key)
		}
		if c.gens[key] != token.gen || c.epoch != token.epoch {
			c.metrics.observe(c.name, resultSuperseded)
			return data, err
		}
		if err != nil {
			delete(c.entries, key)
			c.metrics.observe(c.name, resultError)
			return data, err
		}
		c.entries[key] = Entry[V]{Data: data, Timestamp: c.now()}
		if c.onFill != nil {
			c.onFill(key, data)
		}
		c.metrics.observe(c.name, resultFetch)
		return data, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.observe(c.name, resultShared)
		}
		data, _ := res.Val.(V)
		return data, res.Err
	}
}
