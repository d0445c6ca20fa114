package reactive

import "reflect"

// Signal is a reactive value container.
// Reading a Signal's value during a tracked computation (computed evaluation
// or effect execution) automatically subscribes that computation to changes.
type Signal[T any] struct {
	base sourceBase

	// value is the current signal value.
	value T

	// equal decides whether a write changes the value.
	// If nil, defaultEquals is used.
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
// The signal belongs to the current Scope, if any.
func NewSignal[T any](initial T, opts ...Option) *Signal[T] {
	o := applyOptions(opts)
	return &Signal[T]{
		base: sourceBase{
			id:    nextID(),
			name:  o.name,
			kind:  KindSignal,
			owner: getCurrentOwner(),
		},
		value: initial,
		equal: equalityFor[T](o),
	}
}

// Get returns the current value and subscribes the current computation.
func (s *Signal[T]) Get() T {
	if s.base.disposed() {
		staleAccess(&s.base, "read")
		return s.value
	}
	getTrackingContext().registerRead(s)
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set updates the signal's value and notifies subscribers if the value
// changed under the signal's equality policy. Outside a batch the update is
// flushed before Set returns.
func (s *Signal[T]) Set(value T) {
	s.write(getTrackingContext(), value)
}

// Update reads the current value, applies fn and writes the result.
// The read is not tracked.
func (s *Signal[T]) Update(fn func(T) T) {
	s.write(getTrackingContext(), fn(s.value))
}

func (s *Signal[T]) write(ctx *TrackingContext, value T) {
	if s.base.disposed() {
		staleAccess(&s.base, "write")
		return
	}
	if s.equals(s.value, value) {
		return
	}
	checkEffectWrite(ctx, &s.base)

	s.value = value
	s.base.version++

	for _, o := range loadObservers() {
		o.SignalWritten(s.base.info())
	}

	ctx.startBatch()
	defer ctx.endBatch()
	s.base.propagate(ctx)
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// Name returns the debug name of the signal.
func (s *Signal[T]) Name() string {
	return s.base.name
}

// Version returns the number of accepted writes.
func (s *Signal[T]) Version() uint64 {
	return s.base.version
}

// Info describes the signal for snapshots.
func (s *Signal[T]) Info() NodeInfo {
	return s.base.info()
}

func (s *Signal[T]) sourceNode() *sourceBase { return &s.base }

func (s *Signal[T]) refresh() {}

// equals checks if two values are equal using the configured equality function.
func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals implements reference/primitive equality: == for comparable
// values, identity for slices, maps, pointers and channels. Functions and
// other non-comparable values never compare equal. Deep equality is never
// used so writes stay O(1).
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	}
	return referenceEqual(reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem())
}

func referenceEqual(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Func:
		return a.IsNil() && b.IsNil()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ea, eb := a.Elem(), b.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return referenceEqual(ea, eb)
	default:
		if a.Comparable() && b.Comparable() {
			return a.Equal(b)
		}
		return false
	}
}

// checkEffectWrite enforces EffectStrictMode for writes made directly by an
// effect body.
func checkEffectWrite(ctx *TrackingContext, sig *sourceBase) {
	if EffectStrictMode == StrictEffectOff {
		return
	}
	e, ok := ctx.currentListener.(*Effect)
	if !ok || e.allowWrites {
		return
	}
	err := &EffectWriteError{Effect: e.Info(), Signal: sig.info()}
	if EffectStrictMode == StrictEffectPanic {
		panic(err)
	}
	Logger().Warn("signal written from effect body", "effect", e.name, "effect_id", e.id, "signal", sig.name, "signal_id", sig.id)
}

// staleAccess applies the disposed-scope policy: DevMode panics, production
// drops the operation (optionally logging it).
func staleAccess(node *sourceBase, op string) {
	err := &StaleAccessError{Node: node.info(), Op: op}
	if DevMode {
		panic(err)
	}
	if Debug.LogStaleAccess {
		Logger().Warn("stale reactive access", "op", op, "kind", node.kind.String(), "id", node.id, "name", node.name)
	}
}
