package reactive

import "time"

// computeState is the evaluation state of a Computed.
type computeState uint8

const (
	// stateStale means a source may have changed; the next read verifies
	// the sources and recomputes if needed.
	stateStale computeState = iota

	// stateClean means the cached value is current.
	stateClean

	// stateComputing means the compute function (or source verification)
	// is running. Reading the node in this state is a cycle.
	stateComputing
)

// Computed is a cached derivation of other signals and computeds.
//
// Computeds are lazy: a write to a source only marks them stale, and they
// recompute on the next read. If several sources change before a read, the
// computed runs once. If every source settles back to a value equal to the
// one last observed, the compute function is skipped altogether.
//
// Computeds can be read from other computeds and effects, behaving like
// signals themselves.
type Computed[T any] struct {
	base sourceBase
	deps subscriberBase

	// compute is the function that computes the value. It must not have
	// side effects.
	compute func() T

	// value is the cached computed value.
	value T

	state computeState

	// initialized is false until the first successful evaluation.
	initialized bool

	// failed is true when the last evaluation panicked. A failed computed
	// keeps propagating invalidations so readers retry.
	failed bool

	// invalidated records a source change that happened while computing.
	invalidated bool

	// forced makes the next refresh recompute without verifying sources.
	forced bool

	// disposed is set when the owning scope releases the node.
	disposed bool

	// marking guards propagation through the partial dependency sets left
	// behind by failed evaluations.
	marking bool

	// equal decides whether a recomputation changed the value.
	equal func(T, T) bool
}

// NewComputed creates a new computed with the given computation function.
// The computation is not run immediately; it runs lazily on first Get().
// The computed belongs to the current Scope, if any, and is released when
// that scope is disposed.
func NewComputed[T any](compute func() T, opts ...Option) *Computed[T] {
	o := applyOptions(opts)
	owner := getCurrentOwner()

	c := &Computed[T]{
		base: sourceBase{
			id:    nextID(),
			name:  o.name,
			kind:  KindComputed,
			owner: owner,
		},
		compute: compute,
		state:   stateStale,
		equal:   equalityFor[T](o),
	}

	if owner != nil {
		owner.registerComputed(c)
	}
	return c
}

// Get returns the computed value, recomputing if necessary, and subscribes
// the current computation.
//
// Get panics with *CyclicDependencyError when the computed is read while it
// is computing, and re-panics whatever the compute function panicked with.
// Use TryGet to receive those as errors.
func (c *Computed[T]) Get() T {
	if c.disposed || c.base.disposed() {
		staleAccess(&c.base, "read")
		return c.value
	}
	if c.state == stateComputing {
		panic(c.cycleError())
	}

	ctx := getTrackingContext()
	// Registered after refresh so the recorded version is the settled one,
	// and registered even when refresh panics so the reader retries once
	// the sources change.
	defer ctx.registerRead(c)

	c.refresh()
	return c.value
}

// TryGet is like Get but returns failures as errors: *CyclicDependencyError
// for cycles and *ComputeError for panics raised by a compute function.
func (c *Computed[T]) TryGet() (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cycle, ok := r.(*CyclicDependencyError); ok {
				err = cycle
				return
			}
			err = &ComputeError{Computed: c.Info(), Value: r}
		}
	}()
	return c.Get(), nil
}

// Peek returns the up-to-date value without subscribing.
func (c *Computed[T]) Peek() T {
	if c.disposed {
		return c.value
	}
	c.refresh()
	return c.value
}

// MarkDirty forces a recompute on the next read and propagates to its
// dependents. Implements the Listener interface.
func (c *Computed[T]) MarkDirty() {
	if c.disposed {
		return
	}
	ctx := getTrackingContext()
	ctx.startBatch()
	defer ctx.endBatch()
	c.forced = true
	c.markStale(ctx)
}

// ID returns the unique identifier for this computed.
// Implements the Listener interface.
func (c *Computed[T]) ID() uint64 {
	return c.base.id
}

// Name returns the debug name of the computed.
func (c *Computed[T]) Name() string {
	return c.base.name
}

// Version returns the number of evaluations that produced a new value.
func (c *Computed[T]) Version() uint64 {
	return c.base.version
}

// Info describes the computed for snapshots.
func (c *Computed[T]) Info() NodeInfo {
	info := c.base.info()
	info.Deps = len(c.deps.deps)
	return info
}

func (c *Computed[T]) sourceNode() *sourceBase { return &c.base }

func (c *Computed[T]) addDependency(src source) { c.deps.record(src) }

func (c *Computed[T]) addCleanup(fn Cleanup) { c.deps.cleanups = append(c.deps.cleanups, fn) }

// markStale marks the computed stale and propagates to dependents without
// recomputing.
func (c *Computed[T]) markStale(ctx *TrackingContext) {
	switch c.state {
	case stateComputing:
		c.invalidated = true
	case stateClean:
		c.state = stateStale
	default:
		// Already stale: dependents were notified by the first
		// invalidation, unless the last evaluation failed and readers are
		// waiting for a retry.
		if !c.failed {
			return
		}
	}
	if c.marking {
		return
	}
	c.marking = true
	defer func() { c.marking = false }()
	c.base.propagate(ctx)
}

// refresh brings the cached value up to date.
func (c *Computed[T]) refresh() {
	switch c.state {
	case stateClean:
		return
	case stateComputing:
		panic(c.cycleError())
	}
	if c.disposed {
		return
	}

	completed := false
	defer func() {
		if !completed {
			c.state = stateStale
			c.failed = true
		}
	}()

	if c.initialized && !c.failed && !c.forced {
		c.state = stateComputing
		c.invalidated = false
		changed := c.deps.sourcesChanged()
		c.state = stateStale
		if !changed && !c.invalidated {
			c.state = stateClean
			completed = true
			return
		}
	}

	c.recompute()
	completed = true
}

// recompute runs the computation, replaces the dependency set and updates
// the cached value.
func (c *Computed[T]) recompute() {
	ctx := getTrackingContext()
	c.deps.runCleanups()

	c.state = stateComputing
	c.invalidated = false
	c.forced = false

	timed := observing()
	var start time.Time
	if timed {
		start = time.Now()
	}

	// Writes made by an impure compute function are flushed after it
	// returns rather than in the middle of the evaluation.
	ctx.startBatch()
	defer ctx.endBatch()

	prev := ctx.setListener(c)
	c.deps.beginTracking()
	defer func() {
		ctx.setListener(prev)
		if r := recover(); r != nil {
			c.deps.commitPartial(c)
			c.state = stateStale
			c.failed = true
			if timed {
				c.evaluated(time.Since(start), &ComputeError{Computed: c.Info(), Value: r})
			}
			panic(r)
		}
	}()

	value := c.compute()

	c.deps.commitTracking(c)
	if !c.initialized || !c.equals(c.value, value) {
		c.value = value
		c.base.version++
	}
	c.initialized = true
	c.failed = false
	c.state = stateClean
	if c.invalidated {
		c.state = stateStale
		c.invalidated = false
	}

	if timed {
		c.evaluated(time.Since(start), nil)
	}
}

func (c *Computed[T]) evaluated(d time.Duration, err error) {
	info := c.Info()
	for _, o := range loadObservers() {
		o.ComputedEvaluated(info, d, err)
	}
}

// dispose releases the computed: cleanups run, sources forget it and it
// forgets its dependents. Implements disposer.
func (c *Computed[T]) dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.deps.runCleanups()
	c.deps.releaseDependencies(c)
	c.base.subs = nil
	c.state = stateClean
}

func (c *Computed[T]) cycleError() *CyclicDependencyError {
	return &CyclicDependencyError{ID: c.base.id, Name: c.base.name}
}

// equals checks if two values are equal.
func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

var (
	_ source  = (*Computed[int])(nil)
	_ tracker = (*Computed[int])(nil)
)
