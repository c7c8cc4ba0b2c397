package cordon

import "context"

// Validator checks a call's arguments before the operation runs. The core
// consumes validators, it never implements them — schema checking belongs
// to the caller.
type Validator interface {
	// Validate returns a non-nil error describing why args are invalid.
	Validate(args []any) error
}

// ValidatorFunc adapts an ordinary function into a [Validator].
type ValidatorFunc func(args []any) error

// Validate calls the underlying function.
func (f ValidatorFunc) Validate(args []any) error { return f(args) }

// Guard wraps an operation with a caller-supplied authorization predicate.
// When the predicate returns false the call fails with a [GuardError] and
// the operation is not invoked.
func Guard[T any](rt *Runtime, allow func(ctx context.Context, args []any) bool) Policy[T] {
	hooks := rt.Hooks()

	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			if !allow(ctx, args) {
				hooks.emitGuardRejected(op.Name())

				var zero T
				return zero, &GuardError{Op: op.Name()}
			}

			return op.Call(ctx, args...)
		})
	}
}

// Validate wraps an operation with a caller-supplied [Validator]. A
// validation error fails the call with a [ValidationError] carrying the
// validator's message; the operation is not invoked.
func Validate[T any](v Validator) Policy[T] {
	return func(op Operation[T]) Operation[T] {
		return op.wrapped(func(ctx context.Context, args ...any) (T, error) {
			if err := v.Validate(args); err != nil {
				var zero T
				return zero, &ValidationError{Op: op.Name(), Detail: err.Error()}
			}

			return op.Call(ctx, args...)
		})
	}
}
