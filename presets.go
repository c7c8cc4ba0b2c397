package cordon

import "time"

// Presets bundle option descriptors for common shapes of wrapped
// operations, avoiding boilerplate configuration.

// StandardClient returns options suitable for a typical remote call:
// 5s timeout, 3 retries with 100ms exponential backoff, and a circuit
// breaker with a 5-failure threshold and 30s reset.
func StandardClient() []any {
	return []any{
		WithTimeout(5 * time.Second),
		WithRetry(3, ExponentialBackoff(100*time.Millisecond)),
		WithCircuitBreaker(
			FailureThreshold(5),
			ResetTimeout(30*time.Second),
		),
	}
}

// ReadThrough returns options for an idempotent read: results cached for
// ttl with a 2s timeout on the underlying call.
func ReadThrough(ttl time.Duration) []any {
	return []any{
		WithCache(ttl),
		WithTimeout(2 * time.Second),
	}
}

// BurstCollapser returns options for handlers fed by bursty sources:
// calls are debounced by delay and budgeted to limit executions per window.
func BurstCollapser(delay time.Duration, limit int, window time.Duration) []any {
	return []any{
		WithRateLimit(limit, window),
		WithDebounce(delay),
	}
}
