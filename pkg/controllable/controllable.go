package controllable

import "github.com/vango-dev/reactive/pkg/reactive"

// Source is anything a controlled Value can read from. Signals and
// Computeds satisfy it.
type Source[T any] interface {
	Get() T
	Peek() T
}

// Value is a controlled or uncontrolled piece of component state.
type Value[T any] struct {
	source   Source[T]
	internal *reactive.Signal[T]
	onChange func(T)
	equal    func(a, b T) bool
}

// Option configures a Value.
type Option[T any] func(*Value[T])

// Controlled makes the Value read from src instead of its own state.
// A nil src leaves the Value uncontrolled.
func Controlled[T any](src Source[T]) Option[T] {
	return func(v *Value[T]) {
		if src != nil {
			v.source = src
		}
	}
}

// ControlledBy is Controlled for a plain getter. The getter is wrapped in a
// Computed, so reads of it are tracked like any other dependency.
func ControlledBy[T any](get func() T) Option[T] {
	return func(v *Value[T]) {
		if get != nil {
			v.source = reactive.NewComputed(get)
		}
	}
}

// OnChange registers the callback invoked with each requested value.
func OnChange[T any](fn func(T)) Option[T] {
	return func(v *Value[T]) {
		v.onChange = fn
	}
}

// WithEquals sets the comparison used to skip no-op Set calls. Without it
// an uncontrolled Value uses its signal's default equality and a controlled
// Value reports every Set.
func WithEquals[T any](fn func(a, b T) bool) Option[T] {
	return func(v *Value[T]) {
		v.equal = fn
	}
}

// New creates a Value. defaultValue seeds the internal state and is ignored
// when the Value is controlled.
func New[T any](defaultValue T, opts ...Option[T]) *Value[T] {
	v := &Value[T]{}
	for _, opt := range opts {
		opt(v)
	}
	if v.source == nil {
		var sigOpts []reactive.Option
		if v.equal != nil {
			sigOpts = append(sigOpts, reactive.WithEquals(v.equal))
		}
		v.internal = reactive.NewSignal(defaultValue, sigOpts...)
	}
	return v
}

// IsControlled reports whether the Value reads from a parent source.
func (v *Value[T]) IsControlled() bool {
	return v.source != nil
}

// Get returns the current value and tracks it.
func (v *Value[T]) Get() T {
	if v.source != nil {
		return v.source.Get()
	}
	return v.internal.Get()
}

// Peek returns the current value without tracking.
func (v *Value[T]) Peek() T {
	if v.source != nil {
		return v.source.Peek()
	}
	return v.internal.Peek()
}

// Set requests a new value. Uncontrolled values store it; controlled values
// leave their source alone. OnChange runs in both cases unless the value is
// unchanged.
func (v *Value[T]) Set(next T) {
	if v.source != nil {
		if v.equal != nil && v.equal(v.source.Peek(), next) {
			return
		}
		v.notify(next)
		return
	}

	before := v.internal.Version()
	v.internal.Set(next)
	if v.internal.Version() == before {
		return
	}
	v.notify(next)
}

// Update sets the result of fn applied to the current value.
func (v *Value[T]) Update(fn func(T) T) {
	v.Set(fn(v.Peek()))
}

func (v *Value[T]) notify(next T) {
	if v.onChange != nil {
		v.onChange(next)
	}
}
