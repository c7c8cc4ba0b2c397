package cordon

import (
	"context"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Breaker state machine
// ---------------------------------------------------------------------------

// BreakerState is one of the three circuit breaker states.
type BreakerState uint32

// Breaker states.
const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns "closed", "open" or "half-open".
func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type (
	breakerConfig struct {
		failureThreshold int
		resetTimeout     time.Duration
		onStateChange    func(BreakerState)
	}

	// BreakerOption configures a circuit breaker.
	BreakerOption func(*breakerConfig)

	// Breaker tracks the health of one decorated operation and fails fast
	// while it is down. One Breaker is created per decorated operation at
	// wrap time and lives for the process lifetime of that wrapped
	// operation; its state is shared by every caller of the operation.
	// Lock-free via atomic CAS.
	Breaker struct {
		name  string
		clock Clock
		hooks *Hooks
		cfg   breakerConfig

		state           atomic.Uint32
		failureCount    atomic.Int64
		lastFailureNano atomic.Int64
	}
)

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
	}
}

// FailureThreshold sets the number of failures before the breaker opens.
func FailureThreshold(n int) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.failureThreshold = n
	}
}

// ResetTimeout sets how long the breaker stays open before the next call is
// allowed through as a half-open probe.
func ResetTimeout(d time.Duration) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.resetTimeout = d
	}
}

// OnStateChange sets a callback fired on every actual state transition,
// never on repeated checks that leave the state unchanged.
func OnStateChange(fn func(BreakerState)) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.onStateChange = fn
	}
}

// NewBreaker creates a circuit breaker for the named operation.
func NewBreaker(name string, clock Clock, hooks *Hooks, opts ...BreakerOption) *Breaker {
	cfg := defaultBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &Breaker{
		name:  name,
		clock: clock,
		hooks: hooks,
		cfg:   cfg,
	}
}

// Allow checks if a call should pass through. Returns nil while the breaker
// is closed or half-open. While open, the reset timeout is checked lazily:
// once it has elapsed since the last failure the breaker transitions to
// half-open and the call is allowed as a probe; otherwise the call
// short-circuits with a [CircuitOpenError] and the underlying operation is
// never invoked.
func (b *Breaker) Allow() error {
	if BreakerState(b.state.Load()) != StateOpen {
		return nil
	}

	last := time.Unix(0, b.lastFailureNano.Load())
	if b.clock.Since(last) >= b.cfg.resetTimeout {
		if b.state.CompareAndSwap(uint32(StateOpen), uint32(StateHalfOpen)) {
			b.changed(StateHalfOpen)
			b.hooks.emitCircuitHalfOpen(b.name)
		}
		// Even if the CAS lost to another caller, the state is now
		// half-open, so allow the call.
		return nil
	}

	return &CircuitOpenError{Op: b.name}
}

// RecordSuccess records a successful call. A probe success in half-open
// closes the breaker and resets the failure count to zero.
func (b *Breaker) RecordSuccess() {
	switch BreakerState(b.state.Load()) {
	case StateClosed:
		b.failureCount.Store(0)

	case StateHalfOpen:
		if b.state.CompareAndSwap(uint32(StateHalfOpen), uint32(StateClosed)) {
			b.failureCount.Store(0)
			b.changed(StateClosed)
			b.hooks.emitCircuitClose(b.name)
		}

	case StateOpen:
		// No underlying call runs while open.
	}
}

// RecordFailure records a failed call. In closed state the failure count
// increments and the breaker opens at the threshold; in half-open a probe
// failure increments the count and re-opens.
func (b *Breaker) RecordFailure() {
	b.lastFailureNano.Store(b.clock.Now().UnixNano())

	count := b.failureCount.Add(1)
	if count < int64(b.cfg.failureThreshold) {
		return
	}

	switch BreakerState(b.state.Load()) {
	case StateClosed:
		if b.state.CompareAndSwap(uint32(StateClosed), uint32(StateOpen)) {
			b.changed(StateOpen)
			b.hooks.emitCircuitOpen(b.name)
		}

	case StateHalfOpen:
		if b.state.CompareAndSwap(uint32(StateHalfOpen), uint32(StateOpen)) {
			b.changed(StateOpen)
			b.hooks.emitCircuitOpen(b.name)
		}

	case StateOpen:
		// Already open.
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	return BreakerState(b.state.Load())
}

// FailureCount returns the current failure count.
func (b *Breaker) FailureCount() int {
	return int(b.failureCount.Load())
}

func (b *Breaker) changed(s BreakerState) {
	if b.cfg.onStateChange != nil {
		b.cfg.onStateChange(s)
	}
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

// CircuitBreak wraps an operation with its own [Breaker], created once at
// wrap time. All instances calling the same wrapped operation share the one
// breaker by design.
func CircuitBreak[T any](rt *Runtime, opts ...BreakerOption) Policy[T] {
	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		b := NewBreaker(op.Name(), clock, hooks, opts...)
		return BreakWith[T](b)(op)
	}
}

// BreakWith wraps an operation with an existing [Breaker], letting several
// operations share one breaker or tests inspect its state.
func BreakWith[T any](b *Breaker) Policy[T] {
	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			if err := b.Allow(); err != nil {
				var zero T
				return zero, err
			}

			val, err := op.Call(ctx, args...)
			if err != nil {
				b.RecordFailure()
			} else {
				b.RecordSuccess()
			}

			return val, err
		})
	}
}
