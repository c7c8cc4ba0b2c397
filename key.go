package cordon

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// KeyFunc derives an invocation key from a call's arguments. Implementations
// must be deterministic for equal argument sets. Keys are mapping keys, never
// a security boundary.
type KeyFunc func(args ...any) string

// InvocationKey returns the default per-argument key for an operation:
// "owner:name:JSON(args)".
func InvocationKey[T any](op Operation[T], args []any) string {
	return op.owner + ":" + op.name + ":" + argsKey(args)
}

// OperationKey returns the per-operation key "owner:name", used by policies
// whose budget is shared by all calls to the operation regardless of
// arguments (rate limiter, throttle).
func OperationKey[T any](op Operation[T]) string {
	return op.owner + ":" + op.name
}

// memoKey is the per-wrapped-operation key "name:JSON(args)" used by Memoize.
func memoKey(name string, args []any) string {
	return name + ":" + argsKey(args)
}

// argsKey serializes an argument list deterministically. goccy/go-json
// marshals map keys in sorted order, so equal argument sets yield equal
// keys. Unmarshalable arguments fall back to fmt representation rather than
// failing the call.
func argsKey(args []any) string {
	if len(args) == 0 {
		return "[]"
	}

	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}

	return string(data)
}
