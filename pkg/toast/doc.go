// Package toast provides a reactive notification queue.
//
// A Store keeps the visible toasts in a signal. Rendering code reads
// Items inside an effect and re-renders whenever a toast is added or
// dismissed; the toast UI itself is left to the application.
//
//	loop := reactive.NewLoop(0)
//	go loop.Run(ctx)
//
//	loop.Dispatch(func() {
//	    store := toast.New(toast.WithDispatcher(loop), toast.WithDuration(3*time.Second))
//	    reactive.NewEffect(func() {
//	        render(store.Items())
//	    })
//	    store.Success("Project deleted")
//	})
//
// Auto-dismiss timers run on their own goroutines and dispatch the removal
// back onto the loop, so the store is only ever written from the goroutine
// that owns it.
//
// With title:
//
//	store.WithTitle(toast.TypeSuccess, "Settings", "Your changes have been saved.")
package toast
