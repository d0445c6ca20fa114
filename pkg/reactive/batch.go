package reactive

// Batch groups multiple signal updates into a single notification phase.
// Computeds are invalidated as each write happens, but queued effects only
// run once the outermost batch completes, each at most once per round.
//
// Batches can be nested. The batch depth is restored even if fn panics.
//
// Example:
//
//	Batch(func() {
//	    firstName.Set("John")
//	    lastName.Set("Doe")
//	    age.Set(30)
//	})
//	// Effects reading all three run once with all three changes
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.startBatch()
	defer ctx.endBatch()
	fn()
}

// BatchValue is Batch for a function that returns a value.
func BatchValue[T any](fn func() T) T {
	ctx := getTrackingContext()
	ctx.startBatch()
	defer ctx.endBatch()
	return fn()
}

// Tx runs fn as a transaction, grouping all signal updates.
// This is an alias for Batch().
func Tx(fn func()) {
	Batch(fn)
}

// TxNamed runs fn as a named transaction for debugging and tracing.
// The transaction boundaries are logged at debug level when DebugMode is on.
//
// Example:
//
//	TxNamed("user-profile-update", func() {
//	    user.Set(newUser)
//	    profile.Set(newProfile)
//	})
func TxNamed(name string, fn func()) {
	if DebugMode {
		log := Logger()
		log.Debug("tx start", "tx", name)
		defer log.Debug("tx end", "tx", name)
	}
	Batch(fn)
}

// Untrack runs fn without tracking reads and returns its result.
// Reads inside fn never subscribe the surrounding computation, but their
// values are still current.
func Untrack[T any](fn func() T) T {
	ctx := getTrackingContext()
	old := ctx.setListener(nil)
	defer ctx.setListener(old)
	return fn()
}

// Untracked runs a function without tracking signal reads as dependencies.
//
// Example:
//
//	Untracked(func() {
//	    // Reading count here won't subscribe the current effect
//	    value := count.Get()
//	    fmt.Println("Current value:", value)
//	})
//
// For single signal reads, Peek() is more direct.
func Untracked(fn func()) {
	ctx := getTrackingContext()
	old := ctx.setListener(nil)
	defer ctx.setListener(old)
	fn()
}
