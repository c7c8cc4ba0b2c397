package cordon

import "context"

// retryConfig holds the optional configuration for retry behavior.
type retryConfig struct {
	onRetry func(err error, attempt int)
	retryIf func(error) bool // nil means retry every error
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig)

// OnRetry sets a callback invoked before each re-invocation with the failed
// attempt's error and its 1-indexed attempt number. For maxRetries=N it
// fires exactly N times against an always-failing operation.
func OnRetry(fn func(err error, attempt int)) RetryOption {
	return func(cfg *retryConfig) {
		cfg.onRetry = fn
	}
}

// RetryIf sets a predicate that decides whether an error is worth retrying.
// When it returns false the error propagates immediately.
func RetryIf(fn func(error) bool) RetryOption {
	return func(cfg *retryConfig) {
		cfg.retryIf = fn
	}
}

// Retry wraps an operation so that failures are re-invoked up to maxRetries
// additional times: the invocation count starts at 1 with the initial
// attempt, so an always-failing operation runs maxRetries+1 times. Between
// attempts the policy waits strategy.Delay(attempt) on the runtime's clock.
// On exhaustion the last error propagates unchanged, so errors.Is and
// errors.As against the underlying failure keep working.
func Retry[T any](rt *Runtime, maxRetries int, strategy BackoffStrategy, opts ...RetryOption) Policy[T] {
	var cfg retryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			var zero T
			var lastErr error

			for attempt := 1; attempt <= maxRetries+1; attempt++ {
				result, err := op.Call(ctx, args...)
				if err == nil {
					return result, nil
				}

				lastErr = err

				if cfg.retryIf != nil && !cfg.retryIf(err) {
					return zero, err
				}

				if attempt == maxRetries+1 {
					break
				}

				hooks.emitRetry(attempt, err)

				if cfg.onRetry != nil {
					cfg.onRetry(err, attempt)
				}

				// Strategy delays are 0-indexed; the wait before the k-th
				// retry is Delay(k-1).
				timer := clock.NewTimer(strategy.Delay(attempt - 1))
				select {
				case <-timer.C():
				case <-ctx.Done():
					timer.Stop()
					return zero, ctx.Err()
				}
			}

			return zero, lastErr
		})
	}
}
