package cordon

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Wrap — declarative composition via option descriptors
// ---------------------------------------------------------------------------
//
// Wrap is the declarative face of Compose: callers list With* descriptors in
// any order and Wrap nests the resulting policies in a sane fixed order
// (see order.go). Generic descriptors use any to work around Go's generic
// type constraint on function signatures; Wrap[T] interprets them.

// wrapOptionFunc is a non-descriptor option that modifies wrapSetup.
type wrapOptionFunc func(*wrapSetup)

// wrapSetup holds non-descriptor configuration collected during Wrap.
type wrapSetup struct {
	rt *Runtime
}

// WithRuntime sets the runtime whose clock, hooks and keyed state the
// wrapped policies use. Defaults to [DefaultRuntime].
func WithRuntime(rt *Runtime) any {
	return wrapOptionFunc(func(s *wrapSetup) {
		s.rt = rt
	})
}

// timeoutDesc holds deferred timeout configuration.
type timeoutDesc struct {
	d time.Duration
}

// retryDesc holds deferred retry configuration.
type retryDesc struct {
	maxRetries int
	strategy   BackoffStrategy
	opts       []RetryOption
}

// breakerDesc holds deferred circuit breaker configuration.
type breakerDesc struct {
	opts []BreakerOption
}

// rateLimitDesc holds deferred rate limiter configuration.
type rateLimitDesc struct {
	limit  int
	window time.Duration
	opts   []RateLimitOption
}

// cacheDesc holds deferred cache configuration.
type cacheDesc struct {
	ttl  time.Duration
	opts []CacheOption
}

// cachePolicyDesc holds a pre-built *CachePolicy[T], type-erased.
type cachePolicyDesc struct {
	cp any
}

// memoizeDesc marks permanent memoization.
type memoizeDesc struct{}

// debounceDesc holds deferred debounce configuration.
type debounceDesc struct {
	delay time.Duration
	opts  []DebounceOption
}

// throttleDesc holds deferred throttle configuration.
type throttleDesc struct {
	interval time.Duration
	opts     []ThrottleOption
}

// fallbackDesc holds a type-erased static fallback value.
type fallbackDesc struct {
	val any
}

// fallbackFuncDesc holds a type-erased fallback function.
type fallbackFuncDesc struct {
	fn any // Func[T] stored as any
}

// guardDesc holds a guard predicate.
type guardDesc struct {
	allow func(ctx context.Context, args []any) bool
}

// validateDesc holds a validator.
type validateDesc struct {
	v Validator
}

// WithTimeout adds a timeout that fails slow calls after d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRetry adds retry logic with the given number of additional attempts
// and backoff strategy.
func WithRetry(maxRetries int, strategy BackoffStrategy, opts ...RetryOption) any {
	return retryDesc{maxRetries: maxRetries, strategy: strategy, opts: opts}
}

// WithCircuitBreaker adds a circuit breaker created at wrap time for this
// operation.
func WithCircuitBreaker(opts ...BreakerOption) any {
	return breakerDesc{opts: opts}
}

// WithRateLimit adds a sliding-window rate limiter allowing limit calls per
// window.
func WithRateLimit(limit int, window time.Duration, opts ...RateLimitOption) any {
	return rateLimitDesc{limit: limit, window: window, opts: opts}
}

// WithCache adds TTL-aware caching of successful results in the runtime's
// global store. Use [Cached] and [WithCachePolicy] instead when the
// invalidation surface is needed.
func WithCache(ttl time.Duration, opts ...CacheOption) any {
	return cacheDesc{ttl: ttl, opts: opts}
}

// WithCachePolicy adds a pre-built [CachePolicy], keeping its Invalidate
// handle with the caller. The policy's type parameter must match Wrap's.
func WithCachePolicy[T any](cp *CachePolicy[T]) any {
	return cachePolicyDesc{cp: cp}
}

// WithMemoize adds permanent per-operation memoization.
func WithMemoize() any {
	return memoizeDesc{}
}

// WithDebounce adds per-key debouncing with the given quiet delay.
func WithDebounce(delay time.Duration, opts ...DebounceOption) any {
	return debounceDesc{delay: delay, opts: opts}
}

// WithThrottle adds per-key throttling with the given minimum interval.
func WithThrottle(interval time.Duration, opts ...ThrottleOption) any {
	return throttleDesc{interval: interval, opts: opts}
}

// WithFallback adds a static fallback value returned when the call fails.
// The value must match Wrap's type parameter T.
func WithFallback[T any](val T) any {
	return fallbackDesc{val: val}
}

// WithFallbackFunc adds a fallback function invoked with the original
// context and arguments when the call fails. The function must be a Func[T]
// matching Wrap's type parameter.
func WithFallbackFunc[T any](fn Func[T]) any {
	return fallbackFuncDesc{fn: fn}
}

// WithGuard adds an authorization predicate checked before the call.
func WithGuard(allow func(ctx context.Context, args []any) bool) any {
	return guardDesc{allow: allow}
}

// WithValidator adds argument validation checked before the call.
func WithValidator(v Validator) any {
	return validateDesc{v: v}
}

// Wrap composes the policies described by opts around op. Descriptors may be
// listed in any order; Wrap nests them by fixed priority (fallback
// outermost, debounce/throttle innermost). Unrecognized option values are
// ignored, matching the permissive any-typed option idiom.
func Wrap[T any](op Operation[T], opts ...any) Operation[T] {
	var setup wrapSetup

	// Phase 1: collect non-descriptor options so the runtime is resolved
	// before any policy is built.
	for _, opt := range opts {
		if wof, ok := opt.(wrapOptionFunc); ok {
			wof(&setup)
		}
	}

	rt := setup.rt
	if rt == nil {
		rt = DefaultRuntime()
	}

	// Phase 2: build policy entries from descriptors.
	var entries []policyEntry[T]

	for _, opt := range opts {
		switch desc := opt.(type) {
		case wrapOptionFunc:
			// Already processed in phase 1.

		case timeoutDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityTimeout,
				name:     "timeout",
				policy:   Timeout[T](rt, desc.d),
			})

		case retryDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityRetry,
				name:     "retry",
				policy:   Retry[T](rt, desc.maxRetries, desc.strategy, desc.opts...),
			})

		case breakerDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityBreaker,
				name:     "circuit_breaker",
				policy:   CircuitBreak[T](rt, desc.opts...),
			})

		case rateLimitDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityRate,
				name:     "rate_limit",
				policy:   RateLimit[T](rt, desc.limit, desc.window, desc.opts...),
			})

		case cacheDesc:
			cp := Cached[T](rt, desc.ttl, desc.opts...)
			entries = append(entries, policyEntry[T]{
				priority: priorityCache,
				name:     "cache",
				policy:   cp.Policy(),
			})

		case cachePolicyDesc:
			cp := desc.cp.(*CachePolicy[T])
			entries = append(entries, policyEntry[T]{
				priority: priorityCache,
				name:     "cache",
				policy:   cp.Policy(),
			})

		case memoizeDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityCache,
				name:     "memoize",
				policy:   Memoize[T](),
			})

		case debounceDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityCoalesce,
				name:     "debounce",
				policy:   Debounce[T](rt, desc.delay, desc.opts...),
			})

		case throttleDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityCoalesce,
				name:     "throttle",
				policy:   Throttle[T](rt, desc.interval, desc.opts...),
			})

		case fallbackDesc:
			val := desc.val.(T)
			entries = append(entries, policyEntry[T]{
				priority: priorityFallback,
				name:     "fallback",
				policy:   FallbackValue[T](rt, val),
			})

		case fallbackFuncDesc:
			fn := desc.fn.(Func[T])
			entries = append(entries, policyEntry[T]{
				priority: priorityFallback,
				name:     "fallback_func",
				policy:   Fallback[T](rt, fn),
			})

		case guardDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityGuard,
				name:     "guard",
				policy:   Guard[T](rt, desc.allow),
			})

		case validateDesc:
			entries = append(entries, policyEntry[T]{
				priority: priorityValidate,
				name:     "validate",
				policy:   Validate[T](desc.v),
			})
		}
	}

	return Compose(op, sortPolicies(entries)...)
}
