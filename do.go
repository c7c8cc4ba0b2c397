package cordon

import "context"

// Do is a convenience function that wraps a single call with policies
// without constructing an [Operation] by hand. The function is lifted into
// the uniform calling convention under the given name and executed once
// through [Wrap].
func Do[T any](ctx context.Context, name string, fn func(context.Context) (T, error), opts ...any) (T, error) {
	op := Wrap(NewOperation("", name, NoArgs(fn)), opts...)
	return op.Call(ctx)
}
