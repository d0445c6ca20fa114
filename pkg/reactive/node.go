package reactive

// Listener is anything that can be notified when a dependency changes.
// Effects and computeds implement it; integrations (for example a component
// renderer) can implement it and install themselves with WithListener.
//
// Listeners other than effects and computeds are queued like effects and
// receive MarkDirty during the flush, at most once per flush round.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication in the flush queue.
	ID() uint64
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// NodeKind identifies the kind of a reactive node.
type NodeKind uint8

const (
	KindSignal NodeKind = iota + 1
	KindComputed
	KindEffect
	KindScope
)

// String returns a human-readable name for the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindComputed:
		return "computed"
	case KindEffect:
		return "effect"
	case KindScope:
		return "scope"
	default:
		return "unknown"
	}
}

// NodeInfo describes a reactive node for observers and snapshots.
type NodeInfo struct {
	ID   uint64   `json:"id"`
	Kind NodeKind `json:"-"`
	Name string   `json:"name,omitempty"`

	// KindName mirrors Kind for JSON consumers.
	KindName string `json:"kind"`

	// Deps is the number of sources the node currently reads.
	// Zero for signals.
	Deps int `json:"deps"`

	// Subs is the number of subscribers. Zero for effects.
	Subs int `json:"subs"`
}

func newNodeInfo(id uint64, kind NodeKind, name string) NodeInfo {
	return NodeInfo{ID: id, Kind: kind, Name: name, KindName: kind.String()}
}

// source is a readable node: a Signal or a Computed.
type source interface {
	sourceNode() *sourceBase

	// refresh brings the value up to date without tracking the read.
	// Signals are always current; stale computeds verify or recompute.
	refresh()
}

// staleMarker is implemented by subscribers that invalidate lazily instead of
// being queued for the flush.
type staleMarker interface {
	markStale(ctx *TrackingContext)
}

// tracker is implemented by listeners that record their own dependency set.
type tracker interface {
	Listener
	addDependency(src source)
}

// flushable is implemented by listeners that do their own work when the
// flush reaches them.
type flushable interface {
	runQueued()
}

// sourceBase provides subscriber management shared by Signal[T] and
// Computed[T].
type sourceBase struct {
	id   uint64
	name string
	kind NodeKind

	// version increases every time the observable value changes.
	version uint64

	// subs are non-owning back-references to the nodes reading this source.
	subs []Listener

	// owner is the scope the node was created in, if any.
	owner *Scope
}

// subscribe adds a listener to this source's subscribers.
// Deduplicates by listener ID to prevent double-subscription.
func (s *sourceBase) subscribe(l Listener) {
	if l == nil {
		return
	}
	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}
	s.subs = append(s.subs, l)
}

// unsubscribe removes a listener from this source's subscribers.
// Order is preserved so notification order follows subscription order.
func (s *sourceBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}
	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			copy(s.subs[i:], s.subs[i+1:])
			s.subs[len(s.subs)-1] = nil
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// propagate invalidates every subscriber: computeds are marked stale
// transitively, everything else is queued for the flush.
func (s *sourceBase) propagate(ctx *TrackingContext) {
	if len(s.subs) == 0 {
		return
	}
	// Copy so subscribers may unsubscribe while being notified.
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		if m, ok := sub.(staleMarker); ok {
			m.markStale(ctx)
			continue
		}
		ctx.enqueue(sub)
	}
}

// disposed reports whether the owning scope has been torn down.
func (s *sourceBase) disposed() bool {
	return s.owner != nil && s.owner.IsDisposed()
}

func (s *sourceBase) info() NodeInfo {
	info := newNodeInfo(s.id, s.kind, s.name)
	info.Subs = len(s.subs)
	return info
}

// dependency is one edge from a subscriber to a source, together with the
// source version observed when it was read.
type dependency struct {
	src     source
	version uint64
}

// subscriberBase holds the dynamic dependency set shared by Computed[T] and
// Effect.
type subscriberBase struct {
	// deps is the dependency set of the last completed evaluation.
	deps []dependency

	// next collects the reads of the evaluation in progress.
	next []dependency

	// collecting is true while an evaluation is running.
	collecting bool

	// cleanups registered via OnCleanup, run in reverse order.
	cleanups []Cleanup
}

// beginTracking starts collecting a fresh dependency set.
func (b *subscriberBase) beginTracking() {
	b.next = b.next[:0]
	b.collecting = true
}

// record adds src to the dependency set being collected.
func (b *subscriberBase) record(src source) {
	if !b.collecting {
		return
	}
	base := src.sourceNode()
	for i := range b.next {
		if b.next[i].src.sourceNode() == base {
			b.next[i].version = base.version
			return
		}
	}
	b.next = append(b.next, dependency{src: src, version: base.version})
}

// commitTracking replaces the dependency set with the collected one,
// subscribing self to new sources and unsubscribing from sources that were
// not read this time.
func (b *subscriberBase) commitTracking(self Listener) {
	b.collecting = false

	var current map[*sourceBase]struct{}
	if len(b.next) > 0 {
		current = make(map[*sourceBase]struct{}, len(b.next))
		for _, d := range b.next {
			current[d.src.sourceNode()] = struct{}{}
		}
	}

	var previous map[*sourceBase]struct{}
	if len(b.deps) > 0 {
		previous = make(map[*sourceBase]struct{}, len(b.deps))
	}
	for _, d := range b.deps {
		base := d.src.sourceNode()
		previous[base] = struct{}{}
		if _, ok := current[base]; !ok {
			base.unsubscribe(self)
		}
	}
	for _, d := range b.next {
		base := d.src.sourceNode()
		if _, ok := previous[base]; !ok {
			base.subscribe(self)
		}
	}

	// Swap buffers so the old slice is reused for the next evaluation.
	b.deps, b.next = b.next, b.deps[:0]
	clear(b.next[:cap(b.next)])
}

// commitPartial finishes a failed evaluation. The reads made before the
// failure are added to the previous dependency set, so the node is
// invalidated again when either changes.
func (b *subscriberBase) commitPartial(self Listener) {
	for _, d := range b.deps {
		base := d.src.sourceNode()
		seen := false
		for _, n := range b.next {
			if n.src.sourceNode() == base {
				seen = true
				break
			}
		}
		if !seen {
			b.next = append(b.next, d)
		}
	}
	b.commitTracking(self)
}

// releaseDependencies unsubscribes self from every source.
func (b *subscriberBase) releaseDependencies(self Listener) {
	for _, d := range b.deps {
		d.src.sourceNode().unsubscribe(self)
	}
	b.deps = nil
	b.next = nil
	b.collecting = false
}

// sourcesChanged refreshes every dependency and reports whether any of them
// moved past the version observed by the last evaluation. Dependencies are
// checked in read order so a branch that is no longer taken is never
// evaluated once an earlier source has changed.
func (b *subscriberBase) sourcesChanged() bool {
	for _, d := range b.deps {
		d.src.refresh()
		if d.src.sourceNode().version != d.version {
			return true
		}
	}
	return false
}

// runCleanups runs registered cleanups in reverse registration order.
func (b *subscriberBase) runCleanups() {
	if len(b.cleanups) == 0 {
		return
	}
	cleanups := b.cleanups
	b.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
