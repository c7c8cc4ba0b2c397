package cordon

import (
	"math"
	"time"
)

// BackoffStrategy determines the delay between retry attempts.
type BackoffStrategy interface {
	// Delay returns the duration to wait before the given retry attempt
	// (0-indexed: attempt 0 is the delay before the first retry).
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts an ordinary function into a [BackoffStrategy].
// This allows callers to provide ad-hoc backoff logic without defining a type.
type BackoffFunc func(attempt int) time.Duration

// Delay calls the underlying function.
func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

// fixedBackoff returns the same delay for every attempt.
type fixedBackoff struct {
	d time.Duration
}

func (b *fixedBackoff) Delay(_ int) time.Duration { return b.d }

// FixedBackoff returns a [BackoffStrategy] that always returns delay d
// regardless of the attempt number.
func FixedBackoff(d time.Duration) BackoffStrategy {
	return &fixedBackoff{d: d}
}

// exponentialBackoff returns base * 2^attempt.
type exponentialBackoff struct {
	base time.Duration
}

func (b *exponentialBackoff) Delay(attempt int) time.Duration {
	return time.Duration(float64(b.base) * math.Pow(2, float64(attempt)))
}

// ExponentialBackoff returns a [BackoffStrategy] whose delay doubles with
// each attempt: base * 2^attempt, so the k-th retry (1-indexed) waits
// base * 2^(k-1).
func ExponentialBackoff(base time.Duration) BackoffStrategy {
	return &exponentialBackoff{base: base}
}
