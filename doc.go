// Package cordon wraps function calls with composable resilience policies.
//
// A policy takes an [Operation] and returns a wrapped Operation with the
// same calling convention: retry, timeout, circuit breaker, rate limiting,
// caching, debounce, throttle, fallback. The wrapped function never knows
// it is wrapped. Policies compose by nesting via [Compose], or declaratively
// via [Wrap] with option descriptors.
//
// Keyed state (rate windows, cache entries, debounce timers) lives in a
// [Runtime] with an explicit lifetime; time flows through a [Clock] so every
// timing behavior is testable with a fake.
package cordon
