// Package controllable implements a value that is either owned by its
// component or driven by the component's parent.
//
// An uncontrolled Value keeps its state in an internal signal. A controlled
// Value reads from a source supplied by the parent, and Set only reports the
// requested change through OnChange; the parent decides whether to apply it.
//
//	// Parent owns the state.
//	selected := reactive.NewSignal("a")
//	v := controllable.New("",
//	    controllable.Controlled[string](selected),
//	    controllable.OnChange(selected.Set),
//	)
//
//	// Component owns the state.
//	v := controllable.New("a")
//	v.Set("b")
package controllable
