package cordon

import (
	"context"
	"sync"
	"time"
)

// settlement is a shared result cell: every caller coalesced into one real
// execution waits on done and reads the same outcome. It is the deferred
// value of the one execution, handed to all callers of its window.
type settlement[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newSettlement[T any]() *settlement[T] {
	return &settlement[T]{done: make(chan struct{})}
}

func (s *settlement[T]) settle(val T, err error) {
	s.val = val
	s.err = err
	close(s.done)
}

func (s *settlement[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		return s.val, s.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// debounceConfig holds the optional configuration for debouncing.
type debounceConfig struct {
	key KeyFunc
}

// DebounceOption configures debounce behavior.
type DebounceOption func(*debounceConfig)

// DebounceKey sets a custom key function over the call's arguments, e.g. to
// debounce per owner instance rather than per operation. The default key is
// the operation's identity.
func DebounceKey(fn KeyFunc) DebounceOption {
	return func(cfg *debounceConfig) {
		cfg.key = fn
	}
}

// debounceCell is one key's pending execution: at most one outstanding
// timer at a time, the latest call's context and arguments, and the shared
// settlement every coalesced caller waits on. gen counts re-arms: a timer
// callback that started firing just before a new call stopped it carries a
// stale generation and must not consume the new call's arguments.
type debounceCell[T any] struct {
	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending *settlement[T]
	ctx     context.Context
	args    []any
}

// Debounce wraps an operation so that bursts of calls per key collapse into
// a single execution. Each call cancels and replaces the key's pending
// timer, restarting the window; only the last call's arguments execute,
// after delay elapses with no further calls. Every caller coalesced into
// the window blocks until that one execution settles and receives its
// outcome. The delayed execution runs with the last call's context.
//
// Pending timers are registered with the runtime: [Runtime.Close] cancels
// them and fails their waiting callers with [context.Canceled].
func Debounce[T any](rt *Runtime, delay time.Duration, opts ...DebounceOption) Policy[T] {
	var cfg debounceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		var mu sync.Mutex
		cells := make(map[string]*debounceCell[T])

		baseKey := OperationKey(op)

		cellFor := func(key string) *debounceCell[T] {
			mu.Lock()
			defer mu.Unlock()

			cell, ok := cells[key]
			if !ok {
				cell = &debounceCell[T]{}
				cells[key] = cell
			}

			return cell
		}

		fire := func(key string, cell *debounceCell[T], gen uint64) {
			cell.mu.Lock()
			// A newer call re-armed after this timer started firing; its
			// replacement timer owns the execution now.
			if cell.gen != gen {
				cell.mu.Unlock()
				return
			}
			s := cell.pending
			ctx := cell.ctx
			args := cell.args
			cell.pending = nil
			cell.timer = nil
			cell.ctx = nil
			cell.args = nil
			cell.mu.Unlock()

			// Lost the race against cleanup; nothing left to execute.
			if s == nil {
				return
			}

			hooks.emitDebounceFired(key)

			val, err := op.Call(ctx, args...)
			s.settle(val, err)
		}

		rt.registerCleanup(func() {
			mu.Lock()
			defer mu.Unlock()

			for _, cell := range cells {
				cell.mu.Lock()
				if cell.timer != nil {
					cell.timer.Stop()
					cell.timer = nil
				}
				if cell.pending != nil {
					var zero T
					cell.pending.settle(zero, context.Canceled)
					cell.pending = nil
				}
				cell.mu.Unlock()
			}
		})

		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			key := baseKey
			if cfg.key != nil {
				key = baseKey + ":" + cfg.key(args...)
			}

			cell := cellFor(key)

			cell.mu.Lock()
			if cell.timer != nil {
				cell.timer.Stop()
			}
			if cell.pending == nil {
				cell.pending = newSettlement[T]()
			}
			cell.ctx = ctx
			cell.args = args
			s := cell.pending
			cell.gen++
			gen := cell.gen
			cell.timer = clock.AfterFunc(delay, func() { fire(key, cell, gen) })
			cell.mu.Unlock()

			hooks.emitDebounceArmed(key)

			return s.wait(ctx)
		})
	}
}
