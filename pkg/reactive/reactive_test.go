package reactive

import (
	"sync"
	"testing"
	"time"
)

// Integration tests for the reactive system.
// These tests verify that Signal, Computed, Effect, Batch and Scope work
// together correctly.

func TestIntegrationSeenSequence(t *testing.T) {
	s := NewSignal(1)
	c := NewComputed(func() int { return s.Get() * 2 })
	var seen []int
	dispose := NewEffect(func() {
		seen = append(seen, c.Get())
	})
	defer dispose()

	s.Set(2)
	s.Set(2)

	if len(seen) != 2 || seen[0] != 2 || seen[1] != 4 {
		t.Errorf("seen = %v, want [2 4]", seen)
	}
}

func TestIntegrationSignalComputedChain(t *testing.T) {
	// price -> taxedPrice -> discountedPrice
	price := NewSignal(100.0)
	taxRate := NewSignal(0.08)
	discount := NewSignal(0.1)

	taxedPrice := NewComputed(func() float64 {
		return price.Get() * (1 + taxRate.Get())
	})
	discountedPrice := NewComputed(func() float64 {
		return taxedPrice.Get() * (1 - discount.Get())
	})

	if got := discountedPrice.Get(); got < 97.19 || got > 97.21 {
		t.Errorf("expected ~97.2, got %f", got)
	}

	price.Set(200.0)
	if got := discountedPrice.Get(); got < 194.39 || got > 194.41 {
		t.Errorf("expected ~194.4, got %f", got)
	}

	taxRate.Set(0.1)
	if got := discountedPrice.Get(); got < 197.99 || got > 198.01 {
		t.Errorf("expected ~198, got %f", got)
	}
}

func TestIntegrationDiamondIsGlitchFree(t *testing.T) {
	//         A
	//        / \
	//       B   C
	//        \ /
	//         D (computed) -> effect
	a := NewSignal(1)

	bCalls, cCalls, dCalls := 0, 0, 0
	b := NewComputed(func() int { bCalls++; return a.Get() * 2 })
	c := NewComputed(func() int { cCalls++; return a.Get() * 3 })
	d := NewComputed(func() int { dCalls++; return b.Get() + c.Get() })

	var observed [][3]int
	dispose := NewEffect(func() {
		observed = append(observed, [3]int{a.Get(), b.Get(), d.Get()})
	})
	defer dispose()

	a.Set(2)
	a.Set(3)

	if bCalls != 3 || cCalls != 3 || dCalls != 3 {
		t.Errorf("calls b=%d c=%d d=%d, want 3 each", bCalls, cCalls, dCalls)
	}
	for _, o := range observed {
		if o[1] != o[0]*2 || o[2] != o[0]*5 {
			t.Errorf("inconsistent observation %v", o)
		}
	}
	if len(observed) != 3 {
		t.Errorf("effect ran %d times, want 3", len(observed))
	}
}

func TestIntegrationEffectsSeeConsistentBatch(t *testing.T) {
	width := NewSignal(2)
	height := NewSignal(3)
	area := NewComputed(func() int { return width.Get() * height.Get() })

	var areas []int
	dispose := NewEffect(func() {
		areas = append(areas, area.Get())
	})
	defer dispose()

	Batch(func() {
		width.Set(4)
		height.Set(5)
	})

	if len(areas) != 2 || areas[1] != 20 {
		t.Errorf("areas = %v, want [6 20]", areas)
	}
}

func TestIntegrationWriteRevertedInBatch(t *testing.T) {
	n := NewSignal(1)
	doubled := NewComputed(func() int { return n.Get() * 2 })
	runs := 0
	dispose := NewEffect(func() {
		doubled.Get()
		runs++
	})
	defer dispose()

	Batch(func() {
		n.Set(5)
		n.Set(1)
	})

	if runs != 1 {
		t.Errorf("effect ran %d times for a reverted write, want 1", runs)
	}
}

func TestIntegrationDisposalStopsEverything(t *testing.T) {
	s := NewSignal(0)
	computeCalls := 0
	effectRuns := 0

	dispose := CreateRoot(func(dispose func()) func() {
		c := NewComputed(func() int {
			computeCalls++
			return s.Get()
		})
		NewEffect(func() {
			c.Get()
			effectRuns++
		})
		return dispose
	})

	dispose()
	s.Set(1)
	s.Set(2)

	if computeCalls != 1 || effectRuns != 1 {
		t.Errorf("computeCalls=%d effectRuns=%d after disposal, want 1/1", computeCalls, effectRuns)
	}
	if len(s.base.subs) != 0 {
		t.Errorf("signal still has %d subscribers", len(s.base.subs))
	}
}

func TestIntegrationObserver(t *testing.T) {
	rec := &recordingObserver{}
	remove := AddObserver(rec)
	defer remove()

	s := NewSignal(1, WithName("s"))
	c := NewComputed(func() int { return s.Get() + 1 }, WithName("c"))
	dispose := NewEffect(func() { c.Get() }, EffectName("e"))

	s.Set(2)
	dispose()

	scope := NewScope(nil)
	scope.Dispose()

	rec.mu.Lock()
	if rec.writes != 1 {
		t.Errorf("writes = %d, want 1", rec.writes)
	}
	if rec.evaluations != 2 {
		t.Errorf("evaluations = %d, want 2", rec.evaluations)
	}
	if rec.effectRuns != 2 {
		t.Errorf("effect runs = %d, want 2", rec.effectRuns)
	}
	if rec.flushes == 0 {
		t.Error("no flush reported")
	}
	if rec.disposed == 0 {
		t.Error("no scope disposal reported")
	}
	rec.mu.Unlock()

	remove()
	s.Set(3)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.writes != 1 {
		t.Error("removed observer still notified")
	}
}

type recordingObserver struct {
	NopObserver

	mu          sync.Mutex
	writes      int
	evaluations int
	effectRuns  int
	flushes     int
	disposed    int
}

func (r *recordingObserver) SignalWritten(NodeInfo) {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
}

func (r *recordingObserver) ComputedEvaluated(NodeInfo, time.Duration, error) {
	r.mu.Lock()
	r.evaluations++
	r.mu.Unlock()
}

func (r *recordingObserver) EffectRan(NodeInfo, time.Duration, error) {
	r.mu.Lock()
	r.effectRuns++
	r.mu.Unlock()
}

func (r *recordingObserver) FlushCompleted(int, time.Duration) {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
}

func (r *recordingObserver) ScopeDisposed(NodeInfo) {
	r.mu.Lock()
	r.disposed++
	r.mu.Unlock()
}

func TestIndependentGraphsPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer cleanupGoroutineContext()

			s := NewSignal(i)
			c := NewComputed(func() int { return s.Get() * 10 })
			last := 0
			dispose := NewEffect(func() { last = c.Get() })
			defer dispose()

			for j := 0; j < 100; j++ {
				Batch(func() { s.Set(s.Peek() + 1) })
			}
			results[i] = last
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if want := (i + 100) * 10; got != want {
			t.Errorf("graph %d: got %d, want %d", i, got, want)
		}
	}
}
