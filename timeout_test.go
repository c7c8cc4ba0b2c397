package cordon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test helpers: manually fired timers for deterministic races
// ---------------------------------------------------------------------------

// raceTimer is a timer the test fires by hand.
type raceTimer struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newRaceTimer() *raceTimer {
	return &raceTimer{ch: make(chan time.Time, 1)}
}

func (t *raceTimer) C() <-chan time.Time { return t.ch }

func (t *raceTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *raceTimer) Reset(time.Duration) bool { return false }

func (t *raceTimer) fire() { t.ch <- time.Now() }

func (t *raceTimer) wasStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// raceClock hands out raceTimers and remembers them for the test.
type raceClock struct {
	mu     sync.Mutex
	timers []*raceTimer
}

func (c *raceClock) Now() time.Time                  { return time.Now() }
func (c *raceClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (c *raceClock) NewTimer(time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newRaceTimer()
	c.timers = append(c.timers, t)
	return t
}

func (c *raceClock) AfterFunc(time.Duration, func()) Timer {
	return newRaceTimer()
}

func (c *raceClock) timer(i int) *raceTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

// ---------------------------------------------------------------------------
// Races
// ---------------------------------------------------------------------------

func TestTimeoutFastOperationWins(t *testing.T) {
	clk := &raceClock{}
	rt := NewRuntime(WithClock(clk))

	op := NewOperation("S", "fetch", func(_ context.Context, _ ...any) (string, error) {
		return "value", nil
	})

	wrapped := Timeout[string](rt, time.Second)(op)

	v, err := wrapped.Call(context.Background())
	if err != nil {
		t.Fatalf("Call() error = %v, want nil", err)
	}
	if v != "value" {
		t.Fatalf("Call() = %q, want %q", v, "value")
	}

	// The winner must disarm the timer.
	if !clk.timer(0).wasStopped() {
		t.Fatal("timer not stopped after the operation won")
	}
}

func TestTimeoutSlowOperationLoses(t *testing.T) {
	clk := &raceClock{}
	rt := NewRuntime(WithClock(clk))

	release := make(chan struct{})
	op := NewOperation("S", "fetch", func(_ context.Context, _ ...any) (string, error) {
		<-release
		return "late", nil
	})

	wrapped := Timeout[string](rt, 1500*time.Millisecond)(op)

	done := make(chan struct{})
	var v string
	var err error

	go func() {
		v, err = wrapped.Call(context.Background())
		close(done)
	}()

	// Wait for the race to arm its timer, then fire it.
	waitFor(t, func() bool {
		clk.mu.Lock()
		defer clk.mu.Unlock()
		return len(clk.timers) == 1
	})
	clk.timer(0).fire()
	<-done

	if err == nil {
		t.Fatal("Call() error = nil, want timeout error")
	}
	if got := err.Error(); got != "fetch timed out after 1500ms" {
		t.Fatalf("error = %q, want %q", got, "fetch timed out after 1500ms")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("errors.Is(err, ErrTimeout) = false, want true")
	}
	if v != "" {
		t.Fatalf("Call() = %q, want zero value after timeout", v)
	}

	// Let the abandoned call settle; its value must never surface.
	close(release)
	time.Sleep(10 * time.Millisecond)
	if v != "" {
		t.Fatalf("abandoned settlement surfaced %q", v)
	}
}

func TestTimeoutPropagatesOperationError(t *testing.T) {
	clk := &raceClock{}
	rt := NewRuntime(WithClock(clk))

	boom := errors.New("boom")
	op := NewOperation("S", "fetch", func(_ context.Context, _ ...any) (int, error) {
		return 0, boom
	})

	wrapped := Timeout[int](rt, time.Second)(op)

	_, err := wrapped.Call(context.Background())
	if err != boom {
		t.Fatalf("Call() error = %v, want %v", err, boom)
	}
}

func TestTimeoutParentAlreadyCancelled(t *testing.T) {
	clk := &raceClock{}
	rt := NewRuntime(WithClock(clk))

	invoked := false
	op := NewOperation("S", "fetch", func(_ context.Context, _ ...any) (int, error) {
		invoked = true
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wrapped := Timeout[int](rt, time.Second)(op)

	_, err := wrapped.Call(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Call() error = %v, want context.Canceled", err)
	}
	if invoked {
		t.Fatal("operation invoked despite cancelled parent context")
	}
}

// waitFor polls cond briefly; the test fails if it never becomes true.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within 1s")
}
