package cordon

import "sync"

// Runtime owns every piece of process-wide keyed state the policies use:
// rate-limit windows, the global cache store, and the cleanup functions of
// keyed timers. It replaces hidden package-level maps with one object of
// explicit lifetime, constructed once per process and passed by reference
// to policy constructors. [DefaultRuntime] exists for callers who want the
// one-per-process instance without plumbing.
type Runtime struct {
	clock Clock
	hooks Hooks

	mu       sync.Mutex
	rates    map[string]*rateBucket
	cache    *cacheStore
	cleanups []func()
	closed   bool
}

// RuntimeOption configures a [Runtime].
type RuntimeOption func(*Runtime)

// WithClock sets the clock used by every policy constructed on this runtime.
func WithClock(c Clock) RuntimeOption {
	return func(rt *Runtime) {
		rt.clock = c
	}
}

// WithHooks sets the lifecycle hooks emitted by every policy constructed on
// this runtime.
func WithHooks(h Hooks) RuntimeOption {
	return func(rt *Runtime) {
		rt.hooks = h
	}
}

// NewRuntime creates an empty runtime. Without options it uses [RealClock]
// and no hooks.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		rates: make(map[string]*rateBucket),
		cache: newCacheStore(),
	}

	for _, opt := range opts {
		opt(rt)
	}

	if rt.clock == nil {
		rt.clock = RealClock{}
	}

	return rt
}

//nolint:gochecknoglobals // singleton via sync.OnceValue
var defaultRuntime = sync.OnceValue(func() *Runtime { return NewRuntime() })

// DefaultRuntime returns the package-level runtime, creating it on first
// call.
func DefaultRuntime() *Runtime { return defaultRuntime() }

// Clock returns the runtime's clock.
func (rt *Runtime) Clock() Clock { return rt.clock }

// Hooks returns the runtime's hooks.
func (rt *Runtime) Hooks() *Hooks { return &rt.hooks }

// rateBucket returns the sliding-window bucket for key, creating it lazily.
func (rt *Runtime) rateBucket(key string) *rateBucket {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	b, ok := rt.rates[key]
	if !ok {
		b = &rateBucket{}
		rt.rates[key] = b
	}

	return b
}

// registerCleanup records a cleanup function to run when the runtime closes.
// Registration after Close runs the function immediately, so state created
// on a closed runtime is never left uncancellable.
func (rt *Runtime) registerCleanup(fn func()) {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		fn()
		return
	}
	rt.cleanups = append(rt.cleanups, fn)
	rt.mu.Unlock()
}

// Close stops every keyed timer registered with the runtime and clears its
// keyed state. Close is idempotent: the second and later calls, or a call
// with nothing registered, are no-ops.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	cleanups := rt.cleanups
	rt.cleanups = nil
	rt.rates = make(map[string]*rateBucket)
	rt.mu.Unlock()

	for _, fn := range cleanups {
		fn()
	}

	rt.cache.clear()
}
