package reactive

import (
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives engine events. Observers are process-wide and may be
// called from any goroutine that drives a graph, so implementations must be
// safe for concurrent use.
type Observer interface {
	// SignalWritten is called after a signal accepted a new value.
	SignalWritten(node NodeInfo)

	// ComputedEvaluated is called after a compute function ran.
	// err is non-nil when the compute function panicked.
	ComputedEvaluated(node NodeInfo, d time.Duration, err error)

	// EffectRan is called after an effect body ran.
	// err is non-nil when the body panicked.
	EffectRan(node NodeInfo, d time.Duration, err error)

	// FlushCompleted is called when an outermost flush drained its queue.
	FlushCompleted(runs int, d time.Duration)

	// ScopeDisposed is called after a scope finished disposal.
	ScopeDisposed(node NodeInfo)
}

// NopObserver implements Observer with no-op methods. Embed it to implement
// only the events you need.
type NopObserver struct{}

func (NopObserver) SignalWritten(NodeInfo)                           {}
func (NopObserver) ComputedEvaluated(NodeInfo, time.Duration, error) {}
func (NopObserver) EffectRan(NodeInfo, time.Duration, error)         {}
func (NopObserver) FlushCompleted(int, time.Duration)                {}
func (NopObserver) ScopeDisposed(NodeInfo)                           {}

var (
	observers   atomic.Pointer[[]Observer]
	observersMu sync.Mutex
)

// AddObserver registers o. The returned function removes it.
func AddObserver(o Observer) (remove func()) {
	observersMu.Lock()
	defer observersMu.Unlock()

	var next []Observer
	if cur := observers.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, o)
	observers.Store(&next)

	return func() { RemoveObserver(o) }
}

// RemoveObserver unregisters o. Unknown observers are ignored.
func RemoveObserver(o Observer) {
	observersMu.Lock()
	defer observersMu.Unlock()

	cur := observers.Load()
	if cur == nil {
		return
	}
	next := make([]Observer, 0, len(*cur))
	for _, existing := range *cur {
		if existing != o {
			next = append(next, existing)
		}
	}
	if len(next) == 0 {
		observers.Store(nil)
		return
	}
	observers.Store(&next)
}

// loadObservers returns the registered observers, or nil when there are
// none, so callers can skip timing work entirely.
func loadObservers() []Observer {
	if cur := observers.Load(); cur != nil {
		return *cur
	}
	return nil
}

// observing reports whether timing information needs to be collected.
func observing() bool {
	return observers.Load() != nil || Debug.LogEffectRuns
}
