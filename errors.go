package cordon

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------
//
// Policies fail with typed errors whose messages embed the decorated
// operation's name verbatim; the message strings are part of the observable
// contract. Each typed error matches its sentinel via errors.Is, so callers
// can classify without inspecting messages.

// Sentinel targets for errors.Is classification.
var (
	// ErrRateLimited matches any *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout matches any *TimeoutError.
	ErrTimeout = errors.New("timeout")
	// ErrCircuitOpen matches any *CircuitOpenError.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrGuardRejected matches any *GuardError.
	ErrGuardRejected = errors.New("guard rejected")
	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// RateLimitError is returned when a call exceeds its operation's window
// budget. RetryAfter is how long until the oldest recorded call leaves the
// window.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "Rate limit exceeded for " + e.Op
}

// Is reports whether target is [ErrRateLimited].
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// TimeoutError is returned when an operation loses the race against its
// deadline. Limit is the configured bound, not the observed elapsed time.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %dms", e.Op, e.Limit.Milliseconds())
}

// Is reports whether target is [ErrTimeout].
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CircuitOpenError is returned when a call is short-circuited by an open
// breaker. The underlying operation was not invoked; this is load shedding,
// not a failure of the operation itself.
type CircuitOpenError struct {
	Op string
}

func (e *CircuitOpenError) Error() string {
	return "Circuit breaker is open"
}

// Is reports whether target is [ErrCircuitOpen].
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// GuardError is returned when a caller-supplied authorization predicate
// rejects a call before the operation runs.
type GuardError struct {
	Op string
}

func (e *GuardError) Error() string {
	return "Guard failed for " + e.Op
}

// Is reports whether target is [ErrGuardRejected].
func (e *GuardError) Is(target error) bool { return target == ErrGuardRejected }

// ValidationError is returned when a caller-supplied validator rejects a
// call's arguments before the operation runs. Detail is the validator's own
// message.
type ValidationError struct {
	Op     string
	Detail string
}

func (e *ValidationError) Error() string {
	return "Validation failed for " + e.Op + ": " + e.Detail
}

// Is reports whether target is [ErrValidation].
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
