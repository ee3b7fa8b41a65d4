// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package geocache provides the geographically-bucketed response cache with
// stale-while-revalidate semantics.
//
// The cache has two tiers: a bounded in-memory fast tier with approximate LRU
// eviction, and a slower badger-backed tier that mirrors every write and is
// consulted on cold lookups. Backing-tier failures are swallowed; a cache
// failure must never fail the caller.
package geocache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/metrics"
)

// defaultRefreshTimeout bounds background revalidation work, which runs
// detached from the triggering request's context.
const defaultRefreshTimeout = 60 * time.Second

// RefreshFunc produces a new value for a cache key.
type RefreshFunc func(ctx context.Context) (json.RawMessage, error)

// Result is the outcome of a revalidating lookup.
type Result struct {
	Data json.RawMessage

	// Fresh is set when the value was within its hard-expiry window.
	Fresh bool

	// Stale is set when an expired value was served, either while a
	// background refresh runs or as a last resort after a failed fetch.
	Stale bool
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	StaleServes int64 `json:"stale_serves"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Entries     int   `json:"entries"`
}

// node is a fast-tier entry in the LRU list.
type node struct {
	key   string
	entry Entry
	prev  *node
	next  *node
}

// Cache is the two-tier geo cache. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*node
	head     *node // sentinel; head.next is most recently used
	tail     *node // sentinel; tail.prev is least recently used
	capacity int

	// staleFactor multiplies the hard TTL to produce the soft expiry.
	staleFactor int

	backing        BackingStore
	refreshGroup   singleflight.Group
	refreshTimeout time.Duration

	hits        int64
	staleServes int64
	misses      int64
	evictions   int64
}

// New creates a cache with the given fast-tier capacity over a backing store.
func New(capacity, staleFactor int, backing BackingStore) *Cache {
	if capacity <= 0 {
		capacity = 500
	}
	if staleFactor < 1 {
		staleFactor = 1
	}

	c := &Cache{
		items:          make(map[string]*node, capacity),
		head:           &node{},
		tail:           &node{},
		capacity:       capacity,
		staleFactor:    staleFactor,
		backing:        backing,
		refreshTimeout: defaultRefreshTimeout,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a usable (fresh or stale, not dead) value.
// Cold lookups consult the backing tier and promote hits into the fast tier.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	now := time.Now()
	if entry, ok := c.lookup(ctx, key, now); ok && !entry.Dead(now) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		metrics.CacheHits.Inc()
		return entry.Data, true
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.CacheMisses.Inc()
	return nil, false
}

// Set stores a value with the given hard TTL. The soft expiry is the hard
// TTL multiplied by the configured stale factor. The write is mirrored to the
// backing tier; backing failures are swallowed.
func (c *Cache) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) {
	now := time.Now()
	entry := Entry{
		Data:       data,
		CreatedAt:  now,
		HardExpiry: now.Add(ttl),
		SoftExpiry: now.Add(ttl * time.Duration(c.staleFactor)),
	}

	c.mu.Lock()
	c.insert(key, entry)
	c.mu.Unlock()
	metrics.CacheEntries.Set(float64(c.Len()))

	if err := c.backing.Set(ctx, key, &entry); err != nil {
		metrics.CacheBackingErrors.WithLabelValues("write").Inc()
		logging.Debug().Err(err).Str("key", key).Msg("Cache backing write failed")
	}
}

// GetWithRevalidate implements the stale-while-revalidate read path.
//
// Fresh entries are returned directly. Stale entries are returned immediately
// while one background refresh runs; the refreshed value replaces the entry
// and onRefresh (if non-nil) is notified. Dead or absent entries block on a
// synchronous refresh; if that fails and any entry still exists it is served
// as a last resort instead of propagating the error. Cancellation always
// propagates.
func (c *Cache) GetWithRevalidate(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc, onRefresh func(json.RawMessage)) (Result, error) {
	now := time.Now()
	entry, ok := c.lookup(ctx, key, now)

	if ok {
		switch {
		case entry.Fresh(now):
			c.mu.Lock()
			c.hits++
			c.mu.Unlock()
			metrics.CacheHits.Inc()
			return Result{Data: entry.Data, Fresh: true}, nil

		case entry.Stale(now):
			c.mu.Lock()
			c.staleServes++
			c.mu.Unlock()
			metrics.CacheStaleServes.Inc()
			c.revalidate(key, ttl, refresh, onRefresh)
			return Result{Data: entry.Data, Stale: true}, nil
		}
		// Dead entries fall through to a synchronous fetch and remain
		// available as a last resort below.
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.CacheMisses.Inc()

	data, err := refresh(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		if ok {
			logging.Debug().Err(err).Str("key", key).Msg("Refresh failed, serving dead entry")
			return Result{Data: entry.Data, Stale: true}, nil
		}
		return Result{}, err
	}

	c.Set(ctx, key, data, ttl)
	return Result{Data: data, Fresh: true}, nil
}

// revalidate triggers one background refresh for a stale key. Concurrent
// stale reads of the same key share a single refresh via singleflight.
func (c *Cache) revalidate(key string, ttl time.Duration, refresh RefreshFunc, onRefresh func(json.RawMessage)) {
	go func() {
		_, err, _ := c.refreshGroup.Do(key, func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
			defer cancel()

			data, err := refresh(ctx)
			if err != nil {
				return nil, err
			}
			c.Set(ctx, key, data, ttl)
			if onRefresh != nil {
				onRefresh(data)
			}
			return nil, nil
		})
		if err != nil {
			logging.Debug().Err(err).Str("key", key).Msg("Background revalidation failed")
		}
	}()
}

// lookup finds an entry in the fast tier, falling back to the backing tier.
// Backing hits are promoted into the fast tier. Backing failures count as
// misses.
func (c *Cache) lookup(ctx context.Context, key string, now time.Time) (Entry, bool) {
	c.mu.Lock()
	if n, exists := c.items[key]; exists {
		c.moveToFront(n)
		entry := n.entry
		c.mu.Unlock()
		return entry, true
	}
	c.mu.Unlock()

	entry, err := c.backing.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.CacheBackingErrors.WithLabelValues("read").Inc()
			logging.Debug().Err(err).Str("key", key).Msg("Cache backing read failed")
		}
		return Entry{}, false
	}

	c.mu.Lock()
	c.insert(key, *entry)
	c.mu.Unlock()
	return *entry, true
}

// insert adds or replaces a fast-tier entry, evicting the oldest ~20% of
// entries when the tier is full. Caller must hold mu.
func (c *Cache) insert(key string, entry Entry) {
	if n, exists := c.items[key]; exists {
		n.entry = entry
		c.moveToFront(n)
		return
	}

	n := &node{key: key, entry: entry}
	c.addToFront(n)
	c.items[key] = n

	if len(c.items) > c.capacity {
		batch := c.capacity / 5
		if batch < 1 {
			batch = 1
		}
		for i := 0; i < batch && c.tail.prev != c.head; i++ {
			c.removeNode(c.tail.prev)
			c.evictions++
			metrics.CacheEvictions.Inc()
		}
	}
}

func (c *Cache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache) moveToFront(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	c.addToFront(n)
}

func (c *Cache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	delete(c.items, n.key)
}

// Len returns the number of fast-tier entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		StaleServes: c.staleServes,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Entries:     len(c.items),
	}
}

// Clear empties the fast tier. The backing tier is left to the janitor.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*node, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}
