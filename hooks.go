package cordon

import "time"

// Hooks holds optional callback functions for policy lifecycle events. All
// fields are nil by default; callers set only the hooks they care about.
// Once constructed, a Hooks value must not be mutated — emit methods read
// the function fields without synchronisation, which is safe as long as the
// struct is read-only after initialisation.
//
// Hooks are the seam logging and metrics sinks attach to; the policies
// themselves never log.
type Hooks struct {
	OnRetry              func(attempt int, err error)
	OnCircuitOpen        func(op string)
	OnCircuitClose       func(op string)
	OnCircuitHalfOpen    func(op string)
	OnRateLimited        func(op string, retryAfter time.Duration)
	OnTimeout            func(op string)
	OnCacheHit           func(key string)
	OnCacheMiss          func(key string)
	OnCacheInvalidated   func(op string, keys int)
	OnDebounceArmed      func(key string)
	OnDebounceFired      func(key string)
	OnThrottleSuppressed func(key string)
	OnFallbackUsed       func(op string, err error)
	OnGuardRejected      func(op string)
}

func (h *Hooks) emitRetry(attempt int, err error) {
	if h.OnRetry != nil {
		h.OnRetry(attempt, err)
	}
}

func (h *Hooks) emitCircuitOpen(op string) {
	if h.OnCircuitOpen != nil {
		h.OnCircuitOpen(op)
	}
}

func (h *Hooks) emitCircuitClose(op string) {
	if h.OnCircuitClose != nil {
		h.OnCircuitClose(op)
	}
}

func (h *Hooks) emitCircuitHalfOpen(op string) {
	if h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen(op)
	}
}

func (h *Hooks) emitRateLimited(op string, retryAfter time.Duration) {
	if h.OnRateLimited != nil {
		h.OnRateLimited(op, retryAfter)
	}
}

func (h *Hooks) emitTimeout(op string) {
	if h.OnTimeout != nil {
		h.OnTimeout(op)
	}
}

func (h *Hooks) emitCacheHit(key string) {
	if h.OnCacheHit != nil {
		h.OnCacheHit(key)
	}
}

func (h *Hooks) emitCacheMiss(key string) {
	if h.OnCacheMiss != nil {
		h.OnCacheMiss(key)
	}
}

func (h *Hooks) emitCacheInvalidated(op string, keys int) {
	if h.OnCacheInvalidated != nil {
		h.OnCacheInvalidated(op, keys)
	}
}

func (h *Hooks) emitDebounceArmed(key string) {
	if h.OnDebounceArmed != nil {
		h.OnDebounceArmed(key)
	}
}

func (h *Hooks) emitDebounceFired(key string) {
	if h.OnDebounceFired != nil {
		h.OnDebounceFired(key)
	}
}

func (h *Hooks) emitThrottleSuppressed(key string) {
	if h.OnThrottleSuppressed != nil {
		h.OnThrottleSuppressed(key)
	}
}

func (h *Hooks) emitFallbackUsed(op string, err error) {
	if h.OnFallbackUsed != nil {
		h.OnFallbackUsed(op, err)
	}
}

func (h *Hooks) emitGuardRejected(op string) {
	if h.OnGuardRejected != nil {
		h.OnGuardRejected(op)
	}
}
