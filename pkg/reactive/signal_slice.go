package reactive

// SliceSignal wraps Signal[[]T] with convenience methods for slice operations.
//
// Every method builds a new slice instead of modifying the current one, so
// the default reference equality sees the change and slices previously
// returned by Get are never mutated.
type SliceSignal[T any] struct {
	*Signal[[]T]
}

// NewSliceSignal creates a new SliceSignal with the given initial value.
// If initial is nil, creates an empty slice.
func NewSliceSignal[T any](initial []T, opts ...Option) *SliceSignal[T] {
	if initial == nil {
		initial = []T{}
	}
	return &SliceSignal[T]{NewSignal(initial, opts...)}
}

// Append adds items to the end of the slice.
func (s *SliceSignal[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	s.Update(func(current []T) []T {
		next := make([]T, 0, len(current)+len(items))
		next = append(next, current...)
		return append(next, items...)
	})
}

// Prepend adds an item to the beginning of the slice.
func (s *SliceSignal[T]) Prepend(item T) {
	s.Update(func(items []T) []T {
		next := make([]T, 0, len(items)+1)
		next = append(next, item)
		return append(next, items...)
	})
}

// RemoveAt removes the item at the given index.
// Does nothing if index is out of bounds.
func (s *SliceSignal[T]) RemoveAt(index int) {
	s.Update(func(items []T) []T {
		if index < 0 || index >= len(items) {
			return items
		}
		next := make([]T, 0, len(items)-1)
		next = append(next, items[:index]...)
		return append(next, items[index+1:]...)
	})
}

// SetAt sets the item at the given index.
// Does nothing if index is out of bounds.
func (s *SliceSignal[T]) SetAt(index int, item T) {
	s.UpdateAt(index, func(T) T { return item })
}

// UpdateAt replaces the item at the given index with fn(item).
// Does nothing if index is out of bounds.
func (s *SliceSignal[T]) UpdateAt(index int, fn func(T) T) {
	s.Update(func(items []T) []T {
		if index < 0 || index >= len(items) {
			return items
		}
		next := make([]T, len(items))
		copy(next, items)
		next[index] = fn(next[index])
		return next
	})
}

// RemoveWhere removes all items that satisfy the predicate.
// The value is left untouched when nothing matches.
func (s *SliceSignal[T]) RemoveWhere(predicate func(T) bool) {
	s.Update(func(items []T) []T {
		next := make([]T, 0, len(items))
		for _, item := range items {
			if !predicate(item) {
				next = append(next, item)
			}
		}
		if len(next) == len(items) {
			return items
		}
		return next
	})
}

// Clear removes all items from the slice.
func (s *SliceSignal[T]) Clear() {
	s.Set([]T{})
}

// Len returns the length of the slice.
// This reads the signal and creates a dependency.
func (s *SliceSignal[T]) Len() int {
	return len(s.Get())
}
