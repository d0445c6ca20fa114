package reactive

import (
	"sync"
	"testing"
)

// testListener is a plain Listener that counts notifications.
type testListener struct {
	id    uint64
	dirty int
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() { l.dirty++ }
func (l *testListener) ID() uint64 { return l.id }

func TestWithListenerSubscribesPlainListener(t *testing.T) {
	s := NewSignal(0)
	c := NewComputed(func() int { return s.Get() + 1 })
	l := newTestListener()

	WithListener(l, func() {
		s.Get()
		c.Get()
	})

	s.Set(1)
	if l.dirty != 1 {
		t.Errorf("MarkDirty called %d times, want 1 per flush", l.dirty)
	}

	Batch(func() {
		s.Set(2)
		s.Set(3)
	})
	if l.dirty != 2 {
		t.Errorf("MarkDirty called %d times, want 2", l.dirty)
	}
}

func TestTrackRestoresListenerOnPanic(t *testing.T) {
	ctx := getTrackingContext()
	outer := newTestListener()
	inner := newTestListener()

	ctx.track(outer, func() {
		func() {
			defer func() { recover() }()
			ctx.track(inner, func() { panic("boom") })
		}()
		if ctx.currentListener != outer {
			t.Error("listener not restored after panic")
		}
	})
	if ctx.currentListener != nil {
		t.Error("listener not cleared after track")
	}
}

func TestWithOwner(t *testing.T) {
	scope := NewScope(nil)
	defer scope.Dispose()

	WithOwner(scope, func() {
		if CurrentScope() != scope {
			t.Error("owner not installed")
		}
		NewComputed(func() int { return 1 })
	})
	if CurrentScope() != nil {
		t.Error("owner not restored")
	}
	if len(scope.computeds) != 1 {
		t.Errorf("scope owns %d computeds, want 1", len(scope.computeds))
	}
}

func TestGoroutineIDsDiffer(t *testing.T) {
	main := getGoroutineID()
	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = getGoroutineID()
	}()
	wg.Wait()

	if main == 0 || other == 0 || main == other {
		t.Errorf("goroutine IDs: %d and %d", main, other)
	}
}
