package reactive

import "time"

// Effect represents a reactive side effect that runs when its dependencies change.
// Effects are created using CreateEffect or NewEffect and are automatically
// tracked for dependencies during their execution.
//
// Effects run immediately when created, and re-run whenever any signal or
// computed they read during execution changes. Re-runs happen during the
// flush at the end of the outermost batch, after every computed has been
// invalidated, so an effect never observes a half-updated graph.
type Effect struct {
	id   uint64
	name string

	deps subscriberBase

	// fn is the effect function to run.
	fn func() Cleanup

	// owner is the Scope that owns this effect. Errors are routed to the
	// nearest error handler starting here.
	owner *Scope

	// child owns the nodes created by the current run. It is disposed
	// before the next run.
	child *Scope

	running  bool
	disposed bool

	// disposeRequested defers a Dispose made from the effect's own body
	// until the run completes.
	disposeRequested bool

	// forced makes the next queued run skip source verification.
	forced bool

	// allowWrites indicates if this effect has the AllowWrites option.
	// When true, signal writes during the effect body don't trigger
	// strict-mode warnings.
	allowWrites bool

	runs uint64
}

// EffectOption is an option for configuring an Effect.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) isEffectOption()       {}
func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// AllowWrites marks an effect as intentionally performing signal writes.
// Without this option, signal writes during the effect body will trigger
// a warning (StrictEffectWarn) or panic (StrictEffectPanic).
//
//	reactive.CreateEffect(func() reactive.Cleanup {
//	    synced.Set(legacy.ReadCurrent())
//	    return nil
//	}, reactive.AllowWrites())
func AllowWrites() EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.allowWrites = true
	})
}

// EffectName sets the debug name of the effect.
// The name appears in errors, warnings and devtools events.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// CreateEffect creates and runs a new effect within the current owner context.
// The effect function runs immediately and re-runs when any signal or computed
// it reads changes. If the function returns a Cleanup, it will be called
// before the effect re-runs or when the effect is disposed.
//
// Options:
//   - AllowWrites() - Allow signal writes during effect body without warning
//   - EffectName(name) - Set a debug name
//
// Example:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { fmt.Println("Cleanup") }
//	})
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	ctx := getTrackingContext()
	owner := ctx.currentOwner

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: owner,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if owner != nil {
		if owner.IsDisposed() {
			e.disposed = true
			staleAccess(&sourceBase{id: e.id, name: e.name, kind: KindEffect}, "create")
			return e
		}
		owner.registerEffect(e)
	}

	// Writes made by the first run are flushed once it returns.
	ctx.startBatch()
	defer ctx.endBatch()

	if err := e.execute(ctx); err != nil {
		handleError(e.owner, err)
	}
	return e
}

// NewEffect creates and runs an effect whose body has no cleanup result and
// returns its dispose function. Cleanups can still be registered with
// OnCleanup from inside fn.
func NewEffect(fn func(), opts ...EffectOption) (dispose func()) {
	e := CreateEffect(func() Cleanup {
		fn()
		return nil
	}, opts...)
	return e.Dispose
}

// MarkDirty schedules the effect to re-run even if its sources did not
// change. Implements the Listener interface.
func (e *Effect) MarkDirty() {
	if e.disposed {
		return
	}
	ctx := getTrackingContext()
	ctx.startBatch()
	defer ctx.endBatch()
	e.forced = true
	ctx.enqueue(e)
}

// ID returns the unique identifier for this effect.
// Implements the Listener interface.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the debug name of the effect.
func (e *Effect) Name() string {
	return e.name
}

// Runs returns how many times the effect body has run.
func (e *Effect) Runs() uint64 {
	return e.runs
}

// IsDisposed reports whether the effect has been disposed.
func (e *Effect) IsDisposed() bool {
	return e.disposed
}

// Info describes the effect for snapshots.
func (e *Effect) Info() NodeInfo {
	info := newNodeInfo(e.id, KindEffect, e.name)
	info.Deps = len(e.deps.deps)
	return info
}

func (e *Effect) addDependency(src source) { e.deps.record(src) }

func (e *Effect) addCleanup(fn Cleanup) { e.deps.cleanups = append(e.deps.cleanups, fn) }

// runQueued is called by the flush. The effect re-runs only if a source
// actually moved since the last run.
func (e *Effect) runQueued() {
	if e.disposed || e.running {
		return
	}
	ctx := getTrackingContext()

	if !e.forced {
		changed, err := e.verify()
		if err != nil {
			handleError(e.owner, err)
			return
		}
		if !changed {
			return
		}
	}
	e.forced = false

	if err := e.execute(ctx); err != nil {
		handleError(e.owner, err)
	}
}

// verify reports whether any source changed. A panic raised while
// refreshing a computed source is returned as the effect's failure.
func (e *Effect) verify() (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EffectExecutionError{Effect: e.Info(), Value: r}
		}
	}()
	return e.deps.sourcesChanged(), nil
}

// execute runs the effect body: previous cleanups run in reverse order, the
// previous run's child scope is disposed, and the body runs tracked under a
// fresh child scope. A panic is recovered and returned as
// *EffectExecutionError.
func (e *Effect) execute(ctx *TrackingContext) (err error) {
	timed := observing()
	var start time.Time
	if timed {
		start = time.Now()
	}

	e.running = true
	prevListener := ctx.currentListener
	prevOwner := ctx.currentOwner
	defer func() {
		ctx.setListener(prevListener)
		ctx.setOwner(prevOwner)
		e.running = false

		if r := recover(); r != nil {
			if e.deps.collecting {
				e.deps.commitPartial(e)
			}
			err = &EffectExecutionError{Effect: e.Info(), Value: r}
		}

		e.runs++
		if timed {
			e.ran(time.Since(start), err)
		}
		if e.disposeRequested {
			e.dispose()
		}
	}()

	// Teardown runs untracked so reads inside cleanups don't subscribe the
	// outer computation.
	ctx.setListener(nil)
	e.deps.runCleanups()
	if e.child != nil {
		e.child.Dispose()
	}
	e.child = newScope(e.owner, e.name)

	ctx.setListener(e)
	ctx.setOwner(e.child)
	e.deps.beginTracking()

	cleanup := e.fn()

	e.deps.commitTracking(e)
	if cleanup != nil {
		e.deps.cleanups = append(e.deps.cleanups, cleanup)
	}
	return nil
}

func (e *Effect) ran(d time.Duration, err error) {
	if Debug.LogEffectRuns {
		Logger().Debug("effect run", "effect", e.name, "effect_id", e.id, "duration", d, "failed", err != nil)
	}
	info := e.Info()
	for _, o := range loadObservers() {
		o.EffectRan(info, d, err)
	}
}

// Dispose stops the effect: cleanups run, nodes created by its last run are
// released, and it unsubscribes from every source. Calling Dispose from the
// effect's own body takes effect when the body returns. Dispose is
// idempotent.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	if e.running {
		e.disposeRequested = true
		return
	}
	e.dispose()
}

func (e *Effect) dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.disposeRequested = false

	ctx := getTrackingContext()
	prev := ctx.setListener(nil)
	defer ctx.setListener(prev)

	e.deps.runCleanups()
	if e.child != nil {
		e.child.Dispose()
		e.child = nil
	}
	e.deps.releaseDependencies(e)
	if e.owner != nil {
		e.owner.forgetEffect(e)
	}
}

// OnMount creates an effect that runs only once on mount.
// This is equivalent to CreateEffect with no reactive dependencies.
//
// Example:
//
//	OnMount(func() {
//	    fmt.Println("Component mounted")
//	})
func OnMount(fn func()) {
	CreateEffect(func() Cleanup {
		Untracked(fn)
		return nil
	})
}

// OnUnmount registers a function to run when the current Scope is disposed.
//
// Example:
//
//	OnUnmount(func() {
//	    fmt.Println("Component unmounted")
//	})
func OnUnmount(fn func()) {
	if owner := getCurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}

// OnUpdate creates an effect that skips the callback on the first run.
// This is useful when you only want to react to changes, not the initial value.
//
// The deps function is called to establish dependencies. The callback is only
// called on subsequent runs when those dependencies change, and its own reads
// are not tracked.
//
// Example:
//
//	OnUpdate(
//	    func() { _ = count.Get() },           // deps: read signals to track
//	    func() { fmt.Println("Updated!") },   // callback: only on changes
//	)
func OnUpdate(deps func(), callback func()) {
	first := true
	CreateEffect(func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		Untracked(callback)
		return nil
	})
}

var (
	_ tracker   = (*Effect)(nil)
	_ flushable = (*Effect)(nil)
)
