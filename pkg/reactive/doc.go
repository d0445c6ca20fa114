// Package reactive provides the fine-grained reactive engine behind the
// Vango UI primitives.
//
// Dependencies are tracked automatically at runtime: reading a Signal or
// Computed while an Effect or Computed is evaluating subscribes that node to
// the value. Writes invalidate dependents lazily (push) and values are
// recomputed on demand (pull), so a diamond-shaped graph never exposes a
// half-updated state to an effect.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := NewSignal(0)
//	value := count.Get()  // Read (subscribes the running computation)
//	count.Set(5)          // Write (invalidates and flushes)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a cached derived computation:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()  // Recomputes only if a dependency changed
//
// Effect runs side effects when dependencies change:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { /* cleanup */ }
//	})
//
// # Batching
//
// Multiple signal updates can be batched into a single flush:
//
//	Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	    c.Set(3)
//	})  // Each affected effect runs at most once
//
// Outside a batch every Set flushes synchronously before it returns.
//
// # Ownership
//
// Effects and computeds belong to the innermost active Scope. Disposing a
// Scope disposes its children first, then its effects and computeds, and
// finally runs its cleanups:
//
//	dispose := CreateRoot(func(dispose func()) func() {
//	    CreateEffect(func() Cleanup { ... })
//	    return dispose
//	})
//	defer dispose()
//
// # Goroutines
//
// The engine is synchronous and does not lock the graph. Tracking state
// (current listener, current scope, batch depth and the effect queue) is kept
// per goroutine, so independent graphs may live on independent goroutines,
// but a single graph must only be driven from one goroutine at a time. Use a
// Loop to marshal writes from timers or other goroutines onto the goroutine
// that owns the graph.
package reactive
