package cordon

import "sync"

// Lifecycle collects the timer handles and stop functions one owning
// instance registers through its attachment hook, and releases them through
// a single idempotent path.
type Lifecycle struct {
	mu    sync.Mutex
	stops []func()
	done  bool
}

// Register records a stop function to run on [Lifecycle.Cleanup]. Calls
// after Cleanup run the stop function immediately.
func (l *Lifecycle) Register(stop func()) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		stop()
		return
	}
	l.stops = append(l.stops, stop)
	l.mu.Unlock()
}

// RegisterTimer records a timer to stop on cleanup.
func (l *Lifecycle) RegisterTimer(t Timer) {
	l.Register(func() { t.Stop() })
}

// Cleanup stops every registered handle exactly once. It is idempotent and
// a no-op when nothing was registered.
func (l *Lifecycle) Cleanup() {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	stops := l.stops
	l.stops = nil
	l.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// Attachment is the triple an external attachment mechanism supplies for
// one operation: the underlying callable, its declared name, and a hook
// invoked once when the owning instance is constructed. The core assumes
// nothing beyond this triple.
type Attachment[T any] struct {
	Name string
	Call Func[T]
	Init func(lc *Lifecycle)
}

// Bind turns an attachment into a wrapped [Operation] for the named owner
// type, running its Init hook once against a fresh [Lifecycle]. The
// returned Lifecycle is the instance's cleanup surface.
func Bind[T any](owner string, att Attachment[T], policies ...Policy[T]) (Operation[T], *Lifecycle) {
	lc := &Lifecycle{}

	if att.Init != nil {
		att.Init(lc)
	}

	op := NewOperation(owner, att.Name, att.Call)

	return Compose(op, policies...), lc
}
