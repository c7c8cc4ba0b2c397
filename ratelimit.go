package cordon

import (
	"context"
	"sync"
	"time"
)

// rateBucket is one key's sliding window of recorded call times. The mutex
// is per bucket so unrelated keys never contend.
type rateBucket struct {
	mu     sync.Mutex
	stamps []time.Time
}

// allow prunes stamps older than now-window, then either records now and
// admits the call or reports the retry-after until the oldest stamp leaves
// the window. A limit of zero or less admits nothing; with no recorded
// stamps the retry-after is the full window.
func (b *rateBucket) allow(now time.Time, limit int, window time.Duration) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-window)
	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept

	if len(b.stamps) >= limit {
		retryAfter := window
		if len(b.stamps) > 0 {
			retryAfter = b.stamps[0].Add(window).Sub(now)
		}

		return false, retryAfter
	}

	b.stamps = append(b.stamps, now)

	return true, 0
}

// rateLimitConfig holds the optional configuration for rate limiting.
type rateLimitConfig struct {
	key KeyFunc
}

// RateLimitOption configures rate limiter behavior.
type RateLimitOption func(*rateLimitConfig)

// RateKey sets a custom key function over the call's arguments, replacing
// the default per-operation key. Calls with distinct keys draw on distinct
// window budgets.
func RateKey(fn KeyFunc) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.key = fn
	}
}

// RateLimit wraps an operation so that at most limit calls are admitted per
// sliding window. The default budget key is the operation's identity
// (owner:name) — all calls to the same operation on the same owner type
// share one budget regardless of arguments. A rejected call fails
// immediately with a [RateLimitError] carrying the computed retry-after;
// there is no queuing or backpressure. A limit of zero or less rejects
// every call. Window state lives in the runtime,
// created lazily per key.
func RateLimit[T any](rt *Runtime, limit int, window time.Duration, opts ...RateLimitOption) Policy[T] {
	var cfg rateLimitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		baseKey := OperationKey(op)

		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			key := baseKey
			if cfg.key != nil {
				key = baseKey + ":" + cfg.key(args...)
			}

			bucket := rt.rateBucket(key)

			ok, retryAfter := bucket.allow(clock.Now(), limit, window)
			if !ok {
				hooks.emitRateLimited(op.Name(), retryAfter)

				var zero T
				return zero, &RateLimitError{Op: op.Name(), RetryAfter: retryAfter}
			}

			return op.Call(ctx, args...)
		})
	}
}
