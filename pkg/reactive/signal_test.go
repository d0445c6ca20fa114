package reactive

import (
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)
	if got := s.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}

	s.Set(5)
	if got := s.Get(); got != 5 {
		t.Errorf("Get() after Set(5) = %d, want 5", got)
	}
	if s.Version() != 1 {
		t.Errorf("Version() = %d, want 1", s.Version())
	}
}

func TestSignalUpdate(t *testing.T) {
	s := NewSignal(10)
	s.Update(func(n int) int { return n * 2 })
	if got := s.Peek(); got != 20 {
		t.Errorf("Peek() = %d, want 20", got)
	}
}

func TestSignalEqualWriteIsNoop(t *testing.T) {
	s := NewSignal("a")
	runs := 0
	dispose := NewEffect(func() {
		s.Get()
		runs++
	})
	defer dispose()

	s.Set("a")
	if runs != 1 {
		t.Errorf("effect ran %d times after equal write, want 1", runs)
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}

	s.Set("b")
	if runs != 2 {
		t.Errorf("effect ran %d times after change, want 2", runs)
	}
}

func TestSignalPeekDoesNotSubscribe(t *testing.T) {
	s := NewSignal(0)
	runs := 0
	dispose := NewEffect(func() {
		s.Peek()
		runs++
	})
	defer dispose()

	s.Set(1)
	if runs != 1 {
		t.Errorf("effect ran %d times, want 1", runs)
	}
}

func TestSignalWithEquals(t *testing.T) {
	type point struct{ X, Y int }

	// Only X matters.
	s := NewSignal(point{1, 1}, WithEquals(func(a, b point) bool { return a.X == b.X }))
	runs := 0
	dispose := NewEffect(func() {
		s.Get()
		runs++
	})
	defer dispose()

	s.Set(point{1, 2})
	if runs != 1 {
		t.Errorf("runs = %d after equal write, want 1", runs)
	}
	s.Set(point{2, 2})
	if runs != 2 {
		t.Errorf("runs = %d after change, want 2", runs)
	}
}

func TestWithEqualsTypeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched WithEquals type")
		}
	}()
	NewSignal(1, WithEquals(func(a, b string) bool { return a == b }))
}

func TestSignalWithName(t *testing.T) {
	s := NewSignal(0, WithName("count"))
	if s.Name() != "count" {
		t.Errorf("Name() = %q, want %q", s.Name(), "count")
	}
	info := s.Info()
	if info.Kind != KindSignal || info.KindName != "signal" {
		t.Errorf("Info() kind = %v/%q", info.Kind, info.KindName)
	}
}

func TestDefaultEquals(t *testing.T) {
	shared := []int{1, 2, 3}
	m := map[string]int{"a": 1}
	p := &struct{}{}
	fn := func() {}

	tests := []struct {
		name string
		eq   bool
		got  func() bool
	}{
		{"equal ints", true, func() bool { return defaultEquals(1, 1) }},
		{"different strings", false, func() bool { return defaultEquals("a", "b") }},
		{"same slice", true, func() bool { return defaultEquals(shared, shared) }},
		{"resliced", false, func() bool { return defaultEquals(shared, shared[:2]) }},
		{"equal contents, different backing", false, func() bool { return defaultEquals([]int{1}, []int{1}) }},
		{"nil slices", true, func() bool { return defaultEquals([]int(nil), []int(nil)) }},
		{"same map", true, func() bool { return defaultEquals(m, m) }},
		{"different maps", false, func() bool { return defaultEquals(map[string]int{}, map[string]int{}) }},
		{"same pointer", true, func() bool { return defaultEquals(p, p) }},
		{"funcs never equal", false, func() bool { return defaultEquals(fn, fn) }},
		{"comparable structs", true, func() bool {
			type pt struct{ X, Y int }
			return defaultEquals(pt{1, 2}, pt{1, 2})
		}},
		{"non-comparable structs", false, func() bool {
			type bag struct{ Items []int }
			return defaultEquals(bag{shared}, bag{shared})
		}},
		{"interfaces holding equal values", true, func() bool { return defaultEquals[any](3, 3) }},
		{"interfaces holding different types", false, func() bool { return defaultEquals[any](3, "3") }},
		{"nil interfaces", true, func() bool { return defaultEquals[any](nil, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(); got != tt.eq {
				t.Errorf("defaultEquals = %v, want %v", got, tt.eq)
			}
		})
	}
}

func TestIntSignal(t *testing.T) {
	s := NewIntSignal(5)
	s.Inc()
	s.Add(10)
	s.Dec()
	s.Sub(4)
	if got := s.Get(); got != 11 {
		t.Errorf("Get() = %d, want 11", got)
	}
}

func TestFloat64Signal(t *testing.T) {
	s := NewFloat64Signal(1.5)
	s.Add(0.5)
	s.Mul(3)
	if got := s.Get(); got != 6 {
		t.Errorf("Get() = %v, want 6", got)
	}
}

func TestBoolSignal(t *testing.T) {
	s := NewBoolSignal(false)
	s.Toggle()
	if !s.Get() {
		t.Error("expected true after Toggle")
	}
	s.SetFalse()
	if s.Get() {
		t.Error("expected false after SetFalse")
	}
	s.SetTrue()
	if !s.Get() {
		t.Error("expected true after SetTrue")
	}
}

func TestSliceSignalCopyOnWrite(t *testing.T) {
	s := NewSliceSignal[int](nil)
	if s.Peek() == nil {
		t.Fatal("nil initial slice should become empty slice")
	}

	runs := 0
	dispose := NewEffect(func() {
		s.Len()
		runs++
	})
	defer dispose()

	s.Append(1, 2, 3)
	before := s.Peek()

	s.SetAt(1, 20)
	if before[1] != 2 {
		t.Errorf("SetAt mutated the previous slice: %v", before)
	}
	s.Prepend(0)
	s.RemoveAt(3)
	s.UpdateAt(0, func(n int) int { return n - 1 })

	want := []int{-1, 1, 20}
	got := s.Peek()
	if len(got) != len(want) {
		t.Fatalf("slice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice = %v, want %v", got, want)
		}
	}
	if runs != 6 {
		t.Errorf("effect ran %d times, want 6", runs)
	}

	s.RemoveWhere(func(n int) bool { return n > 100 })
	if runs != 6 {
		t.Errorf("RemoveWhere without matches notified, runs = %d", runs)
	}
	s.RemoveAt(10)
	if runs != 6 {
		t.Errorf("out-of-range RemoveAt notified, runs = %d", runs)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d", s.Len())
	}
}
