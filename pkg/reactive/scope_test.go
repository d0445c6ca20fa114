package reactive

import (
	"errors"
	"strings"
	"testing"
)

func TestScopeDisposeOrder(t *testing.T) {
	var log []string
	root := NewScope(nil, WithName("root"))

	root.Run(func() {
		OnCleanup(func() { log = append(log, "root-cleanup-1") })
		OnCleanup(func() { log = append(log, "root-cleanup-2") })

		c := NewComputed(func() int {
			OnCleanup(func() { log = append(log, "computed") })
			return 1
		})
		c.Get()

		NewEffect(func() {
			OnCleanup(func() { log = append(log, "effect") })
		})
	})

	child1 := NewScope(root)
	child1.OnCleanup(func() { log = append(log, "child1") })
	child2 := NewScope(root)
	child2.OnCleanup(func() { log = append(log, "child2") })

	root.Dispose()

	// The effect's run scope is the first child, created before child1.
	want := "child2,child1,effect,computed,root-cleanup-2,root-cleanup-1"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("dispose order:\n got %s\nwant %s", got, want)
	}
	if !root.IsDisposed() || !child1.IsDisposed() || !child2.IsDisposed() {
		t.Error("scopes not marked disposed")
	}

	log = nil
	root.Dispose()
	if len(log) != 0 {
		t.Errorf("second Dispose ran cleanups: %v", log)
	}
}

func TestScopeChildDetachesFromParent(t *testing.T) {
	root := NewScope(nil)
	defer root.Dispose()

	child := NewScope(root)
	if len(root.children) != 1 {
		t.Fatalf("children = %d, want 1", len(root.children))
	}
	child.Dispose()
	if len(root.children) != 0 {
		t.Errorf("disposed child still attached")
	}
	if child.Parent() != root {
		t.Error("Parent() changed")
	}
}

func TestScopeUnderDisposedParent(t *testing.T) {
	root := NewScope(nil)
	root.Dispose()

	child := NewScope(root)
	if !child.IsDisposed() {
		t.Error("child of disposed scope should start disposed")
	}
}

func TestCreateRoot(t *testing.T) {
	s := NewSignal(0)
	runs := 0

	dispose := CreateRoot(func(dispose func()) func() {
		if getCurrentListener() != nil {
			t.Error("CreateRoot body is tracked")
		}
		NewEffect(func() {
			s.Get()
			runs++
		})
		return dispose
	})

	s.Set(1)
	if runs != 2 {
		t.Fatalf("runs = %d, want 2", runs)
	}

	dispose()
	s.Set(2)
	if runs != 2 {
		t.Errorf("effect ran after root disposal, runs = %d", runs)
	}
}

func TestCreateRootInsideEffectIsDetached(t *testing.T) {
	trigger := NewSignal(0)
	data := NewSignal(0)
	innerRuns := 0
	var disposeRoot func()

	disposeOuter := NewEffect(func() {
		trigger.Get()
		if disposeRoot != nil {
			return
		}
		disposeRoot = CreateRoot(func(dispose func()) func() {
			NewEffect(func() {
				data.Get()
				innerRuns++
			})
			return dispose
		})
	})
	defer disposeOuter()

	// Re-running the outer effect must not dispose the detached root.
	trigger.Set(1)
	data.Set(1)
	if innerRuns != 2 {
		t.Errorf("innerRuns = %d, want 2", innerRuns)
	}

	// Reads inside CreateRoot do not subscribe the outer effect.
	if len(data.base.subs) != 1 {
		t.Errorf("data subscribers = %d, want 1", len(data.base.subs))
	}

	disposeRoot()
	data.Set(2)
	if innerRuns != 2 {
		t.Errorf("innerRuns = %d after root disposal, want 2", innerRuns)
	}
}

func TestStaleAccessIsNoop(t *testing.T) {
	old := DevMode
	DevMode = false
	t.Cleanup(func() { DevMode = old })

	root := NewScope(nil)
	var s *Signal[int]
	var c *Computed[int]
	root.Run(func() {
		s = NewSignal(1)
		c = NewComputed(func() int { return s.Get() * 2 })
	})
	if c.Get() != 2 {
		t.Fatal("expected 2")
	}
	root.Dispose()

	s.Set(5)
	if s.Peek() != 1 {
		t.Errorf("write to disposed signal went through: %d", s.Peek())
	}
	if s.Get() != 1 {
		t.Errorf("Get() = %d, want last value 1", s.Get())
	}
	if c.Get() != 2 {
		t.Errorf("computed Get() = %d, want last value 2", c.Get())
	}
}

func TestStaleAccessPanicsInDevMode(t *testing.T) {
	old := DevMode
	DevMode = true
	t.Cleanup(func() { DevMode = old })

	root := NewScope(nil)
	var s *Signal[int]
	root.Run(func() {
		s = NewSignal(1, WithName("orphan"))
	})
	root.Dispose()

	defer func() {
		r := recover()
		err, ok := r.(*StaleAccessError)
		if !ok {
			t.Fatalf("recovered %v, want *StaleAccessError", r)
		}
		if err.Op != "write" || err.Node.Name != "orphan" {
			t.Errorf("err = %v", err)
		}
	}()
	s.Set(2)
}

func TestOnCleanupOutsideContext(t *testing.T) {
	old := DevMode
	t.Cleanup(func() { DevMode = old })

	DevMode = false
	OnCleanup(func() {})

	DevMode = true
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrCleanupContext) {
			t.Errorf("recovered %v, want ErrCleanupContext", r)
		}
	}()
	OnCleanup(func() {})
}

func TestScopeOnCleanupAfterDispose(t *testing.T) {
	root := NewScope(nil)
	root.Dispose()

	ran := false
	root.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup registered on disposed scope did not run")
	}
}

func TestScopeCleanupPanicDoesNotStopDisposal(t *testing.T) {
	var reported []error
	SetUnhandledErrorHandler(func(err error) { reported = append(reported, err) })
	t.Cleanup(func() { SetUnhandledErrorHandler(nil) })

	root := NewScope(nil)
	ran := false
	root.OnCleanup(func() { ran = true })
	root.OnCleanup(func() { panic("cleanup failed") })

	root.Dispose()
	if !ran {
		t.Error("earlier cleanup skipped after a panicking one")
	}
	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1", len(reported))
	}
}

func TestScopeSnapshot(t *testing.T) {
	root := NewScope(nil, WithName("app"))
	defer root.Dispose()

	root.Run(func() {
		s := NewSignal(1)
		c := NewComputed(func() int { return s.Get() + 1 }, WithName("next"))
		NewEffect(func() { c.Get() }, EffectName("printer"))
	})

	snap := root.Snapshot()
	if snap.Name != "app" || snap.KindName != "scope" {
		t.Errorf("snapshot header = %+v", snap.NodeInfo)
	}
	if len(snap.Effects) != 1 || snap.Effects[0].Name != "printer" || snap.Effects[0].Deps != 1 {
		t.Errorf("effects = %+v", snap.Effects)
	}
	if len(snap.Computeds) != 1 || snap.Computeds[0].Subs != 1 {
		t.Errorf("computeds = %+v", snap.Computeds)
	}
	if len(snap.Children) != 1 {
		t.Errorf("children = %d, want the effect's run scope", len(snap.Children))
	}
}
