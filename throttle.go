package cordon

import (
	"context"
	"sync"
	"time"
)

// throttleConfig holds the optional configuration for throttling.
type throttleConfig struct {
	key KeyFunc
}

// ThrottleOption configures throttle behavior.
type ThrottleOption func(*throttleConfig)

// ThrottleKey sets a custom key function over the call's arguments. The
// default key is the operation's identity.
func ThrottleKey(fn KeyFunc) ThrottleOption {
	return func(cfg *throttleConfig) {
		cfg.key = fn
	}
}

// throttleCell is one key's throttle state: the stamp of the last real
// execution and its settlement, which suppressed callers share.
type throttleCell[T any] struct {
	mu      sync.Mutex
	last    time.Time
	has     bool
	current *settlement[T]
}

// Throttle wraps an operation so that at most one call per key executes per
// interval. The first call in a window executes immediately and records the
// timestamp; calls arriving within interval are suppressed — they do not
// re-invoke the operation and instead receive the most recent execution's
// (possibly still pending) outcome. Suppression is not an error.
func Throttle[T any](rt *Runtime, interval time.Duration, opts ...ThrottleOption) Policy[T] {
	var cfg throttleConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		var mu sync.Mutex
		cells := make(map[string]*throttleCell[T])

		baseKey := OperationKey(op)

		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			key := baseKey
			if cfg.key != nil {
				key = baseKey + ":" + cfg.key(args...)
			}

			mu.Lock()
			cell, ok := cells[key]
			if !ok {
				cell = &throttleCell[T]{}
				cells[key] = cell
			}
			mu.Unlock()

			now := clock.Now()

			cell.mu.Lock()
			if cell.has && now.Sub(cell.last) < interval {
				s := cell.current
				cell.mu.Unlock()

				hooks.emitThrottleSuppressed(key)

				return s.wait(ctx)
			}

			cell.has = true
			cell.last = now
			s := newSettlement[T]()
			cell.current = s
			cell.mu.Unlock()

			val, err := op.Call(ctx, args...)
			s.settle(val, err)

			return val, err
		})
	}
}
