package cordon

import "context"

// Fallback wraps an operation so that any failure is substituted by
// fallbackFn, invoked with the same context and arguments. The original
// error is handed to the OnFallbackUsed hook and otherwise swallowed by
// design; no retry happens here.
func Fallback[T any](rt *Runtime, fallbackFn Func[T]) Policy[T] {
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			result, err := op.Call(ctx, args...)
			if err != nil {
				hooks.emitFallbackUsed(op.Name(), err)
				return fallbackFn(ctx, args...)
			}

			return result, nil
		})
	}
}

// FallbackValue wraps an operation so that any failure is substituted by a
// static value.
func FallbackValue[T any](rt *Runtime, val T) Policy[T] {
	return Fallback[T](rt, func(context.Context, ...any) (T, error) {
		return val, nil
	})
}
