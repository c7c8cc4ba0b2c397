package cordon

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// cacheEntry is one stored result. A zero expiry means the entry never
// expires.
type cacheEntry struct {
	value  any
	expiry time.Time
}

// cacheStore is the process-wide mapping behind [Cached], owned by the
// [Runtime] and shared across all instances of all cached operations.
// Stale entries are evicted lazily on read.
type cacheStore struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newCacheStore() *cacheStore {
	return &cacheStore{entries: make(map[string]cacheEntry)}
}

func (s *cacheStore) get(key string, now time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if !e.expiry.IsZero() && !now.Before(e.expiry) {
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

func (s *cacheStore) set(key string, value any, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = cacheEntry{value: value, expiry: expiry}
}

func (s *cacheStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

func (s *cacheStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]cacheEntry)
}

// ---------------------------------------------------------------------------
// Cached — TTL-aware, process-wide scope
// ---------------------------------------------------------------------------

// cacheConfig holds the optional configuration for Cached.
type cacheConfig struct {
	key          KeyFunc
	singleFlight bool
}

// CacheOption configures a [CachePolicy].
type CacheOption func(*cacheConfig)

// CacheKey sets a custom key function over the call's arguments, replacing
// the default "owner:name:JSON(args)" key.
func CacheKey(fn KeyFunc) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.key = fn
	}
}

// SingleFlight coalesces concurrent misses for the same key into one
// underlying call via x/sync/singleflight. Off by default: without it,
// concurrent callers racing a cold key each invoke the operation — a known
// limitation of the cache, not a bug. Coalesced callers share the winning
// call's context.
func SingleFlight() CacheOption {
	return func(cfg *cacheConfig) {
		cfg.singleFlight = true
	}
}

// CachePolicy memoizes an operation's successful results in the runtime's
// process-wide store, with an optional TTL. Build one with [Cached], apply
// it via [CachePolicy.Policy], and clear everything it ever stored with
// [CachePolicy.Invalidate].
type CachePolicy[T any] struct {
	rt  *Runtime
	ttl time.Duration
	cfg cacheConfig
	sf  singleflight.Group

	mu   sync.Mutex
	name string              // last wrapped operation's name
	keys map[string]struct{} // every key this policy ever produced
}

// Cached creates a TTL-aware cache policy on the runtime's global store.
// A ttl of 0 means entries never expire. Results are stored only after a
// call settles successfully; failures are never cached.
func Cached[T any](rt *Runtime, ttl time.Duration, opts ...CacheOption) *CachePolicy[T] {
	var cfg cacheConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &CachePolicy[T]{
		rt:   rt,
		ttl:  ttl,
		cfg:  cfg,
		keys: make(map[string]struct{}),
	}
}

// Policy returns the wrapping policy. On a hit with an unexpired entry the
// stored value is returned without invoking the operation; on a miss or
// expiry the operation runs and its successful result is stored.
func (c *CachePolicy[T]) Policy() Policy[T] {
	clock := c.rt.Clock()
	hooks := c.rt.Hooks()
	store := c.rt.cache

	return func(op Operation[T]) Operation[T] {
		c.mu.Lock()
		c.name = op.Name()
		c.mu.Unlock()

		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			key := ""
			if c.cfg.key != nil {
				key = c.cfg.key(args...)
			} else {
				key = InvocationKey(op, args)
			}

			if v, ok := store.get(key, clock.Now()); ok {
				hooks.emitCacheHit(key)
				return v.(T), nil
			}

			hooks.emitCacheMiss(key)

			if c.cfg.singleFlight {
				v, err, _ := c.sf.Do(key, func() (any, error) {
					return c.fill(ctx, op, key, args)
				})
				if err != nil {
					var zero T
					return zero, err
				}

				return v.(T), nil
			}

			return c.fill(ctx, op, key, args)
		})
	}
}

// fill invokes the operation and stores a successful result under key.
func (c *CachePolicy[T]) fill(ctx context.Context, op Operation[T], key string, args []any) (T, error) {
	result, err := op.Call(ctx, args...)
	if err != nil {
		var zero T
		return zero, err
	}

	var expiry time.Time
	if c.ttl > 0 {
		expiry = c.rt.Clock().Now().Add(c.ttl)
	}

	c.rt.cache.set(key, result, expiry)

	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()

	return result, nil
}

// Invalidate clears every key this policy ever produced, across all
// instances of the decorated operation. Invalidation is coarse: there is no
// per-argument variant. The next call for any cleared key recomputes.
func (c *CachePolicy[T]) Invalidate() {
	c.mu.Lock()
	keys := c.keys
	c.keys = make(map[string]struct{})
	name := c.name
	c.mu.Unlock()

	for key := range keys {
		c.rt.cache.delete(key)
	}

	c.rt.Hooks().emitCacheInvalidated(name, len(keys))
}

// ---------------------------------------------------------------------------
// Memoize — permanent, per-wrapped-operation scope
// ---------------------------------------------------------------------------

// Memoize wraps an operation with a permanent per-wrapped-operation cache
// keyed by "name:JSON(args)". Entries never expire and cannot be
// invalidated. Once any caller computes a result for a given argument
// tuple, every caller sharing the wrapped operation observes the cached
// value — memoization here is not per-instance. Only successful results are
// stored.
func Memoize[T any]() Policy[T] {
	return func(op Operation[T]) Operation[T] {
		var mu sync.Mutex
		entries := make(map[string]T)

		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			key := memoKey(op.Name(), args)

			mu.Lock()
			if v, ok := entries[key]; ok {
				mu.Unlock()
				return v, nil
			}
			mu.Unlock()

			result, err := op.Call(ctx, args...)
			if err != nil {
				var zero T
				return zero, err
			}

			mu.Lock()
			entries[key] = result
			mu.Unlock()

			return result, nil
		})
	}
}
