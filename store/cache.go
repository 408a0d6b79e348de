package store

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheTTL is how long results stay valid after a load
const DefaultCacheTTL = 30 * time.Minute

// DefaultCacheEntries caps the number of cached query results
const DefaultCacheEntries = 1000

// queryCache memoizes query results. Validity is global: every entry expires
// together TTL after the last load, and a load clears everything.
type queryCache struct {
	mu        sync.Mutex
	entries   *lru.Cache
	ttl       time.Duration
	validFrom time.Time
	now       func() time.Time
	max       int
}

func newQueryCache(ttl time.Duration, maxEntries int, now func() time.Time) *queryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	entries, err := lru.New(maxEntries)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &queryCache{
		entries:   entries,
		ttl:       ttl,
		validFrom: now(),
		now:       now,
		max:       maxEntries,
	}
}

// Get returns a cached value while the cache is within its TTL
func (c *queryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiredLocked() {
		c.entries.Purge()
		return nil, false
	}
	return c.entries.Get(key)
}

// Put stores a value. Writes into an expired cache are dropped.
func (c *queryCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiredLocked() {
		return
	}
	c.entries.Add(key, value)
}

// Clear drops every entry and restarts the TTL window at now
func (c *queryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.validFrom = c.now()
}

// Len returns the number of live entries
func (c *queryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiredLocked() {
		return 0
	}
	return c.entries.Len()
}

func (c *queryCache) valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.expiredLocked()
}

func (c *queryCache) window() (time.Time, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validFrom, c.validFrom.Add(c.ttl)
}

func (c *queryCache) expiredLocked() bool {
	return c.now().Sub(c.validFrom) >= c.ttl
}

// cacheKey derives a deterministic key from an operation name and its parameters.
// encoding/json sorts map keys, so parameter insertion order does not matter.
func cacheKey(op string, params map[string]any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(strconv.Quote(err.Error()))
	}
	sum := xxhash.Sum64String(op + ":" + string(encoded))
	return strconv.FormatUint(sum, 16)
}

// cached returns the cached result for (op, params) or computes and stores it.
// Cached values are shared between callers and must be treated as read-only.
func cached[T any](s *Store, op string, params map[string]any, compute func() T) T {
	key := cacheKey(op, params)
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.observer.CacheHit(op)
			return typed
		}
	}

	s.observer.CacheMiss(op)
	result := compute()
	s.cache.Put(key, result)
	return result
}
