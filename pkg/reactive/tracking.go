package reactive

import (
	"runtime"
	"sync"
)

// TrackingContext holds the reactive state for a goroutine.
// Each goroutine has its own tracking context so independent graphs can be
// driven from independent goroutines.
type TrackingContext struct {
	// currentOwner is the Scope that will own newly created nodes.
	currentOwner *Scope

	// currentListener is the computation whose reads are being tracked.
	// nil means no tracking (reads don't create subscriptions).
	currentListener Listener

	// batchDepth tracks nested batches, including the implicit batch around
	// every Set and every effect run. The queue is flushed when it returns
	// to zero.
	batchDepth int

	// queue holds listeners to run when the batch completes, in first
	// enqueue order.
	queue []Listener

	// queued deduplicates queue by listener ID.
	queued map[uint64]struct{}

	// flushing is true while the queue is being drained. Writes made by
	// running effects append to the queue instead of starting a nested
	// flush.
	flushing bool
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine.
// It is parsed from the header of the runtime stack trace.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> "
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine.
// If no context exists, creates a new one.
func getTrackingContext() *TrackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*TrackingContext)
	}

	ctx := &TrackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// cleanupGoroutineContext removes the tracking context for the current
// goroutine. Called by Loop when its goroutine exits.
func cleanupGoroutineContext() {
	trackingContexts.Delete(getGoroutineID())
}

// setListener installs l as the tracked computation and returns the previous
// one so it can be restored.
func (ctx *TrackingContext) setListener(l Listener) Listener {
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

// setOwner installs o as the current owner and returns the previous one.
func (ctx *TrackingContext) setOwner(o *Scope) *Scope {
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

// track runs fn with node as the tracked computation. The previous listener
// is restored on every exit path, including panics.
func (ctx *TrackingContext) track(node Listener, fn func()) {
	old := ctx.setListener(node)
	defer ctx.setListener(old)
	fn()
}

// registerRead records a read of src by the current computation.
// Outside any tracked computation it does nothing.
func (ctx *TrackingContext) registerRead(src source) {
	l := ctx.currentListener
	if l == nil {
		return
	}
	if t, ok := l.(tracker); ok {
		t.addDependency(src)
		return
	}
	// Plain listeners have no dependency set of their own; they stay
	// subscribed until the source is dropped.
	src.sourceNode().subscribe(l)
}

// enqueue schedules l for the current or next flush.
func (ctx *TrackingContext) enqueue(l Listener) {
	id := l.ID()
	if ctx.queued == nil {
		ctx.queued = make(map[uint64]struct{})
	}
	if _, ok := ctx.queued[id]; ok {
		return
	}
	ctx.queued[id] = struct{}{}
	ctx.queue = append(ctx.queue, l)
}

// startBatch increases the batch depth by 1.
func (ctx *TrackingContext) startBatch() {
	ctx.batchDepth++
}

// endBatch decreases the batch depth and flushes when it reaches zero.
func (ctx *TrackingContext) endBatch() {
	ctx.batchDepth--
	if ctx.batchDepth == 0 {
		ctx.flush()
	}
}

// getCurrentListener returns the current listener being tracked.
// Returns nil if no tracking is active.
func getCurrentListener() Listener {
	return getTrackingContext().currentListener
}

// getCurrentOwner returns the current owner for the goroutine.
// Returns nil if no owner context is set.
func getCurrentOwner() *Scope {
	return getTrackingContext().currentOwner
}

// CurrentScope returns the scope that owns nodes created on this goroutine
// right now, or nil outside any scope.
func CurrentScope() *Scope {
	return getCurrentOwner()
}

// WithOwner runs a function with the specified scope as the current owner.
// Nodes created inside fn belong to owner.
//
// Example:
//
//	go func() {
//	    WithOwner(parentScope, func() {
//	        // Effects created here belong to parentScope
//	        CreateEffect(...)
//	    })
//	}()
func WithOwner(owner *Scope, fn func()) {
	ctx := getTrackingContext()
	old := ctx.setOwner(owner)
	defer ctx.setOwner(old)
	fn()
}

// WithListener runs a function with the specified listener for tracking.
// Signals and computeds read inside fn subscribe l.
func WithListener(l Listener, fn func()) {
	getTrackingContext().track(l, fn)
}
