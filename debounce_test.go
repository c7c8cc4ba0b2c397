package cordon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// schedClock — collects AfterFunc callbacks for manual firing
// ---------------------------------------------------------------------------

type schedTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *schedTimer) C() <-chan time.Time { return nil }

func (t *schedTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *schedTimer) Reset(time.Duration) bool { return false }

// fire runs the callback unless the timer was stopped first.
func (t *schedTimer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.fn()
	}
}

type schedClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*schedTimer
	delays []time.Duration
}

func newSchedClock() *schedClock {
	return &schedClock{now: time.Unix(1000, 0)}
}

func (c *schedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *schedClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *schedClock) NewTimer(time.Duration) Timer { return &fakeTimer{} }

func (c *schedClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &schedTimer{fn: fn}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

func (c *schedClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fireLatest fires the most recently armed timer.
func (c *schedClock) fireLatest() {
	c.mu.Lock()
	t := c.timers[len(c.timers)-1]
	c.mu.Unlock()
	t.fire()
}

// ---------------------------------------------------------------------------
// Coalescing
// ---------------------------------------------------------------------------

func TestDebounceCollapsesBurstToLastArguments(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	var mu sync.Mutex
	var executedArgs []any
	executions := 0

	op := NewOperation("Input", "onChange", func(_ context.Context, args ...any) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		executions++
		executedArgs = args
		return args[0].(string), nil
	})

	wrapped := Debounce[string](rt, 250*time.Millisecond)(op)
	ctx := context.Background()

	const burst = 5
	var wg sync.WaitGroup
	results := make([]string, burst)
	inputs := []string{"a", "ab", "abc", "abcd", "abcde"}

	for i := 0; i < burst; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := wrapped.Call(ctx, inputs[i])
			results[i] = v
		}()
		// Serialize arming so the last armed timer carries the last input.
		waitFor(t, func() bool { return clk.timerCount() == i+1 })
	}

	clk.fireLatest()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	if executions != 1 {
		t.Fatalf("operation executed %d times, want 1", executions)
	}
	if len(executedArgs) != 1 || executedArgs[0] != "abcde" {
		t.Fatalf("executed args = %v, want [abcde]", executedArgs)
	}
	// Every coalesced caller resolves to the one real execution's outcome.
	for i, v := range results {
		if v != "abcde" {
			t.Fatalf("caller %d got %q, want %q", i, v, "abcde")
		}
	}
}

func TestDebounceEachCallRearmsTimer(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	op := noopOp("Input", "onChange")
	wrapped := Debounce[string](rt, 100*time.Millisecond)(op)
	ctx := context.Background()

	go func() { _, _ = wrapped.Call(ctx, 1) }()
	waitFor(t, func() bool { return clk.timerCount() == 1 })

	go func() { _, _ = wrapped.Call(ctx, 2) }()
	waitFor(t, func() bool { return clk.timerCount() == 2 })

	// The first timer was stopped when the second call re-armed.
	clk.mu.Lock()
	first := clk.timers[0]
	delay := clk.delays[1]
	clk.mu.Unlock()

	first.mu.Lock()
	stopped := first.stopped
	first.mu.Unlock()

	if !stopped {
		t.Fatal("superseded timer not stopped")
	}
	if delay != 100*time.Millisecond {
		t.Fatalf("re-armed delay = %v, want 100ms", delay)
	}

	clk.fireLatest()
}

func TestDebounceStaleTimerFiringDoesNotCutWindowShort(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	var mu sync.Mutex
	var executedArgs []any
	executions := 0

	op := NewOperation("Input", "onChange", func(_ context.Context, args ...any) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		executions++
		executedArgs = args
		return args[0].(string), nil
	})

	wrapped := Debounce[string](rt, 100*time.Millisecond)(op)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, input := range []string{"first", "second"} {
		i, input := i, input
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := wrapped.Call(ctx, input)
			results[i] = v
		}()
		waitFor(t, func() bool { return clk.timerCount() == i+1 })
	}

	// The first timer's callback was already in flight when the second
	// call stopped it and re-armed. Running the raw callback models that
	// lost race: it must yield to the replacement timer, not execute with
	// the second call's arguments ahead of its quiet window.
	clk.mu.Lock()
	staleFn := clk.timers[0].fn
	clk.mu.Unlock()
	staleFn()

	mu.Lock()
	ran := executions
	mu.Unlock()
	if ran != 0 {
		t.Fatalf("operation executed %d times from a superseded timer, want 0", ran)
	}

	clk.fireLatest()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	if executions != 1 {
		t.Fatalf("operation executed %d times, want 1", executions)
	}
	if len(executedArgs) != 1 || executedArgs[0] != "second" {
		t.Fatalf("executed args = %v, want [second]", executedArgs)
	}
	for i, v := range results {
		if v != "second" {
			t.Fatalf("caller %d got %q, want %q", i, v, "second")
		}
	}
}

func TestDebounceSeparateKeysIndependent(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	var mu sync.Mutex
	executed := map[string]bool{}

	op := NewOperation("Input", "onChange", func(_ context.Context, args ...any) (string, error) {
		mu.Lock()
		executed[args[0].(string)] = true
		mu.Unlock()
		return "", nil
	})

	wrapped := Debounce[string](rt, 100*time.Millisecond,
		DebounceKey(func(args ...any) string {
			return args[0].(string)
		}),
	)(op)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, key := range []string{"left", "right"} {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = wrapped.Call(ctx, key)
		}()
	}
	waitFor(t, func() bool { return clk.timerCount() == 2 })

	// Fire both pending timers; each key executes once.
	clk.mu.Lock()
	timers := append([]*schedTimer(nil), clk.timers...)
	clk.mu.Unlock()
	for _, tm := range timers {
		tm.fire()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !executed["left"] || !executed["right"] {
		t.Fatalf("executed = %v, want both keys", executed)
	}
}

func TestDebouncePropagatesExecutionError(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	boom := errors.New("boom")
	op := NewOperation("Input", "onChange", func(_ context.Context, _ ...any) (string, error) {
		return "", boom
	})

	wrapped := Debounce[string](rt, 100*time.Millisecond)(op)

	errCh := make(chan error, 1)
	go func() {
		_, err := wrapped.Call(context.Background(), 1)
		errCh <- err
	}()
	waitFor(t, func() bool { return clk.timerCount() == 1 })
	clk.fireLatest()

	if err := <-errCh; err != boom {
		t.Fatalf("Call() error = %v, want %v", err, boom)
	}
}

// ---------------------------------------------------------------------------
// Cleanup
// ---------------------------------------------------------------------------

func TestDebounceRuntimeCloseCancelsPending(t *testing.T) {
	clk := newSchedClock()
	rt := NewRuntime(WithClock(clk))

	executed := false
	op := NewOperation("Input", "onChange", func(_ context.Context, _ ...any) (string, error) {
		executed = true
		return "", nil
	})

	wrapped := Debounce[string](rt, time.Hour)(op)

	errCh := make(chan error, 1)
	go func() {
		_, err := wrapped.Call(context.Background(), 1)
		errCh <- err
	}()
	waitFor(t, func() bool { return clk.timerCount() == 1 })

	rt.Close()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Call() error after Close = %v, want context.Canceled", err)
	}

	// A stopped timer firing late must not execute anything.
	clk.fireLatest()
	if executed {
		t.Fatal("operation executed after cleanup")
	}

	// Close again: idempotent.
	rt.Close()
}
