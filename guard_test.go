package cordon

import (
	"context"
	"errors"
	"testing"
)

func TestGuardAllowsWhenPredicateTrue(t *testing.T) {
	rt := NewRuntime()

	op := NewOperation("Admin", "delete", func(_ context.Context, _ ...any) (string, error) {
		return "deleted", nil
	})

	wrapped := Guard[string](rt, func(_ context.Context, _ []any) bool {
		return true
	})(op)

	v, err := wrapped.Call(context.Background())
	if err != nil || v != "deleted" {
		t.Fatalf("Call() = (%q, %v), want (deleted, nil)", v, err)
	}
}

func TestGuardRejectsWithoutInvoking(t *testing.T) {
	rt := NewRuntime()

	invoked := false
	op := NewOperation("Admin", "delete", func(_ context.Context, _ ...any) (string, error) {
		invoked = true
		return "deleted", nil
	})

	wrapped := Guard[string](rt, func(_ context.Context, _ []any) bool {
		return false
	})(op)

	_, err := wrapped.Call(context.Background())
	if err == nil {
		t.Fatal("Call() error = nil, want guard error")
	}
	if got := err.Error(); got != "Guard failed for delete" {
		t.Fatalf("error = %q, want %q", got, "Guard failed for delete")
	}
	if !errors.Is(err, ErrGuardRejected) {
		t.Fatal("errors.Is(err, ErrGuardRejected) = false, want true")
	}
	if invoked {
		t.Fatal("operation invoked despite guard rejection")
	}
}

func TestGuardSeesArguments(t *testing.T) {
	rt := NewRuntime()

	op := NewOperation("Admin", "delete", func(_ context.Context, _ ...any) (string, error) {
		return "deleted", nil
	})

	wrapped := Guard[string](rt, func(_ context.Context, args []any) bool {
		return args[0].(string) == "owner"
	})(op)

	ctx := context.Background()

	if _, err := wrapped.Call(ctx, "owner"); err != nil {
		t.Fatalf("owner call error = %v, want nil", err)
	}
	if _, err := wrapped.Call(ctx, "guest"); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("guest call error = %v, want guard rejection", err)
	}
}

func TestValidateRejectsWithDetail(t *testing.T) {
	invoked := false
	op := NewOperation("Users", "create", func(_ context.Context, _ ...any) (string, error) {
		invoked = true
		return "created", nil
	})

	v := ValidatorFunc(func(args []any) error {
		if len(args) == 0 || args[0] == "" {
			return errors.New("name is required")
		}
		return nil
	})

	wrapped := Validate[string](v)(op)
	ctx := context.Background()

	_, err := wrapped.Call(ctx, "")
	if err == nil {
		t.Fatal("Call() error = nil, want validation error")
	}
	if got := err.Error(); got != "Validation failed for create: name is required" {
		t.Fatalf("error = %q, want %q", got, "Validation failed for create: name is required")
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false, want true")
	}
	if invoked {
		t.Fatal("operation invoked despite validation failure")
	}

	if _, err := wrapped.Call(ctx, "alice"); err != nil {
		t.Fatalf("valid call error = %v, want nil", err)
	}
	if !invoked {
		t.Fatal("operation not invoked for valid arguments")
	}
}

func TestGuardEmitsHook(t *testing.T) {
	var rejected []string
	rt := NewRuntime(WithHooks(Hooks{
		OnGuardRejected: func(op string) {
			rejected = append(rejected, op)
		},
	}))

	op := noopOp("Admin", "delete")
	wrapped := Guard[string](rt, func(_ context.Context, _ []any) bool {
		return false
	})(op)

	_, _ = wrapped.Call(context.Background())

	if len(rejected) != 1 || rejected[0] != "delete" {
		t.Fatalf("hook calls = %v, want [delete]", rejected)
	}
}
