package cordon

import "context"

// Func is the uniform calling convention every policy wraps: an explicit
// context, the call's ordered arguments, and a settling result. Synchronous
// and asynchronous work are indistinguishable behind it — a Func returns
// only once its result has settled, and wrappers wait on timers and
// channels, never by polling.
type Func[T any] func(ctx context.Context, args ...any) (T, error)

// Operation binds a [Func] to its identity: the owning type's name and the
// operation's declared name. Identity is what keyed policies (cache, rate
// limiter, debounce) partition state by, and what policy errors embed.
// Policies never mutate an Operation, they only wrap it.
type Operation[T any] struct {
	owner string
	name  string
	call  Func[T]
}

// NewOperation builds an Operation from its owner type name, operation name
// and underlying function.
func NewOperation[T any](owner, name string, call Func[T]) Operation[T] {
	return Operation[T]{owner: owner, name: name, call: call}
}

// Owner returns the owning type's name.
func (o Operation[T]) Owner() string { return o.owner }

// Name returns the operation's declared name.
func (o Operation[T]) Name() string { return o.name }

// Call invokes the operation.
func (o Operation[T]) Call(ctx context.Context, args ...any) (T, error) {
	return o.call(ctx, args...)
}

// wrapped returns a copy of o with the same identity and a new body. Every
// policy uses this so the identity survives arbitrary nesting.
func (o Operation[T]) wrapped(call Func[T]) Operation[T] {
	return Operation[T]{owner: o.owner, name: o.name, call: call}
}

// Policy wraps an Operation with additional behavior, preserving its
// identity and calling convention. Policies compose by nesting.
type Policy[T any] func(Operation[T]) Operation[T]

// Compose applies policies to op so that the first policy is the outermost
// wrapper: Compose(op, a, b, c) yields a(b(c(op))). Compose with no policies
// returns op unchanged.
func Compose[T any](op Operation[T], policies ...Policy[T]) Operation[T] {
	for i := len(policies) - 1; i >= 0; i-- {
		op = policies[i](op)
	}

	return op
}

// NoArgs lifts a plain func(ctx) (T, error) into the [Func] convention,
// ignoring the argument list.
func NoArgs[T any](fn func(ctx context.Context) (T, error)) Func[T] {
	return func(ctx context.Context, _ ...any) (T, error) {
		return fn(ctx)
	}
}
