package cordon

import (
	"context"
	"time"
)

// Timeout wraps an operation so that its call races a timer armed for d.
// If the timer fires first the wrapper fails with a [TimeoutError] naming
// the operation; the underlying call is not cancelled — it is abandoned and
// its eventual settlement is discarded. If the call settles first the timer
// is disarmed. First settlement wins either way; the loser's outcome never
// surfaces.
func Timeout[T any](rt *Runtime, d time.Duration) Policy[T] {
	clock := rt.Clock()
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			var zero T

			if ctx.Err() != nil {
				return zero, ctx.Err()
			}

			type settled struct {
				val T
				err error
			}

			// Buffered so the abandoned call's send never blocks its
			// goroutine after the timer has won.
			ch := make(chan settled, 1)

			go func() {
				v, err := op.Call(ctx, args...)
				ch <- settled{val: v, err: err}
			}()

			timer := clock.NewTimer(d)

			select {
			case r := <-ch:
				timer.Stop()
				return r.val, r.err

			case <-timer.C():
				hooks.emitTimeout(op.Name())
				return zero, &TimeoutError{Op: op.Name(), Limit: d}

			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		})
	}
}
