package reactive

import "fmt"

// Option configures a Signal or a Computed.
type Option func(*nodeOptions)

type nodeOptions struct {
	name string

	// equal holds a func(T, T) bool; it is type-checked when the node is
	// created.
	equal any
}

// WithName sets a debug name used in errors, logs and devtools.
//
//	count := NewSignal(0, WithName("count"))
func WithName(name string) Option {
	return func(o *nodeOptions) {
		o.name = name
	}
}

// WithEquals replaces the default reference equality with fn. A write (or a
// recomputation) whose result is equal to the current value under fn does
// not notify dependents.
//
//	point := NewSignal(Point{}, WithEquals(func(a, b Point) bool { return a == b }))
func WithEquals[T any](fn func(a, b T) bool) Option {
	return func(o *nodeOptions) {
		o.equal = fn
	}
}

func applyOptions(opts []Option) nodeOptions {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// equalityFor extracts the equality function for T from o.
// A function for a different type is a programming error.
func equalityFor[T any](o nodeOptions) func(T, T) bool {
	if o.equal == nil {
		return nil
	}
	fn, ok := o.equal.(func(T, T) bool)
	if !ok {
		var zero T
		panic(fmt.Sprintf("reactive: WithEquals function %T does not match value type %T", o.equal, zero))
	}
	return fn
}
