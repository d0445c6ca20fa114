package reactive

import (
	"fmt"
	"sync/atomic"
)

// Scope owns reactive nodes and child scopes and tears them down together.
// Nodes created while a Scope is the current owner (see WithOwner, Run and
// CreateRoot) belong to it. Effects create a child scope for every run, so
// nodes created by an effect body are released before the next run.
//
// Scopes form a tree:
//
//	Root Scope
//	├── Child Scope (effect run)
//	│   └── Grandchild Scope
//	└── Child Scope
type Scope struct {
	id   uint64
	name string

	parent   *Scope
	children []*Scope

	effects   []*Effect
	computeds []disposer

	// cleanups run in reverse order when the scope is disposed.
	cleanups []Cleanup

	// onError is the error boundary installed with OnError.
	onError func(error)

	disposing bool
	disposed  bool
}

// disposer is implemented by owned computeds.
type disposer interface {
	dispose()
	Info() NodeInfo
}

// NewScope creates a new scope with the given parent.
// If parent is nil, this creates a root scope. A scope created under an
// already disposed parent starts out disposed.
func NewScope(parent *Scope, opts ...Option) *Scope {
	o := applyOptions(opts)
	return newScope(parent, o.name)
}

func newScope(parent *Scope, name string) *Scope {
	s := &Scope{
		id:     nextID(),
		name:   name,
		parent: parent,
	}
	if parent != nil {
		if parent.disposed {
			s.disposed = true
			return s
		}
		parent.children = append(parent.children, s)
	}
	return s
}

// CreateRoot runs fn with a new detached root scope as the owner and no
// tracked computation. fn receives the root's dispose function; nodes
// created in fn live until it is called, even when CreateRoot is called from
// inside an effect.
func CreateRoot[T any](fn func(dispose func()) T) T {
	root := newScope(nil, "")
	ctx := getTrackingContext()
	prevOwner := ctx.setOwner(root)
	prevListener := ctx.setListener(nil)
	defer func() {
		ctx.setListener(prevListener)
		ctx.setOwner(prevOwner)
	}()
	return fn(root.Dispose)
}

// Run runs fn with s as the current owner.
func (s *Scope) Run(fn func()) {
	WithOwner(s, fn)
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Name returns the debug name of the scope.
func (s *Scope) Name() string {
	return s.name
}

// Parent returns the parent scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed returns whether the scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed
}

// OnCleanup registers a function to run when the scope is disposed.
// Cleanups run in reverse registration order. On an already disposed scope
// fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// OnError installs an error boundary. Failures of effects owned by s or by
// any descendant scope without a boundary of its own are delivered to
// handler instead of the unhandled error handler. A panicking handler
// escalates to the next boundary up.
func (s *Scope) OnError(handler func(err error)) {
	s.onError = handler
}

func (s *Scope) registerEffect(e *Effect) {
	s.effects = append(s.effects, e)
}

func (s *Scope) registerComputed(c disposer) {
	s.computeds = append(s.computeds, c)
}

// forgetEffect drops an effect disposed on its own.
func (s *Scope) forgetEffect(e *Effect) {
	if s.disposing {
		return
	}
	for i, existing := range s.effects {
		if existing == e {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

func (s *Scope) removeChild(child *Scope) {
	if s.disposing {
		return
	}
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Dispose tears the scope down: child scopes first (most recent first),
// then owned effects, then owned computeds, then the scope's cleanups in
// reverse order. The scope is then marked disposed and detached from its
// parent. Disposing twice is a no-op.
//
// Panics raised by cleanups are reported through the error boundaries and
// do not stop the teardown.
func (s *Scope) Dispose() {
	if s.disposed || s.disposing {
		return
	}
	s.disposing = true

	ctx := getTrackingContext()
	prev := ctx.setListener(nil)
	defer ctx.setListener(prev)

	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].Dispose()
	}
	s.children = nil

	for _, e := range s.effects {
		s.guard(e.Dispose)
	}
	s.effects = nil

	for _, c := range s.computeds {
		s.guard(c.dispose)
	}
	s.computeds = nil

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.guard(s.cleanups[i])
	}
	s.cleanups = nil

	s.disposed = true
	s.disposing = false
	s.onError = nil

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	if obs := loadObservers(); obs != nil {
		info := s.Info()
		for _, o := range obs {
			o.ScopeDisposed(info)
		}
	}
}

// guard runs fn, routing a panic to the parent's error boundaries.
func (s *Scope) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("reactive: cleanup panicked: %v", r)
			}
			handleError(s.parent, err)
		}
	}()
	fn()
}

// Info describes the scope for snapshots.
func (s *Scope) Info() NodeInfo {
	info := newNodeInfo(s.id, KindScope, s.name)
	info.Deps = len(s.effects) + len(s.computeds)
	info.Subs = len(s.children)
	return info
}

// ScopeInfo is a point-in-time description of a scope subtree.
type ScopeInfo struct {
	NodeInfo
	Disposed  bool        `json:"disposed"`
	Cleanups  int         `json:"cleanups"`
	Effects   []NodeInfo  `json:"effects,omitempty"`
	Computeds []NodeInfo  `json:"computeds,omitempty"`
	Children  []ScopeInfo `json:"children,omitempty"`
}

// Snapshot describes s and its descendants. Like every other graph
// operation it must be called from the goroutine driving the graph.
func (s *Scope) Snapshot() ScopeInfo {
	info := ScopeInfo{
		NodeInfo: s.Info(),
		Disposed: s.disposed,
		Cleanups: len(s.cleanups),
	}
	for _, e := range s.effects {
		info.Effects = append(info.Effects, e.Info())
	}
	for _, c := range s.computeds {
		info.Computeds = append(info.Computeds, c.Info())
	}
	for _, child := range s.children {
		info.Children = append(info.Children, child.Snapshot())
	}
	return info
}

// OnCleanup registers fn with the innermost reactive context: the running
// effect or computed (fn runs before its next run and on disposal), or else
// the current Scope. Outside any context the call is ignored, or panics
// with ErrCleanupContext in DevMode.
func OnCleanup(fn func()) {
	ctx := getTrackingContext()
	if r, ok := ctx.currentListener.(interface{ addCleanup(Cleanup) }); ok {
		r.addCleanup(fn)
		return
	}
	if ctx.currentOwner != nil {
		ctx.currentOwner.OnCleanup(fn)
		return
	}
	if DevMode {
		panic(ErrCleanupContext)
	}
	Logger().Debug("OnCleanup called outside a reactive context, ignoring")
}

// handleError delivers err to the nearest error boundary starting at s,
// falling back to the unhandled error handler.
func handleError(s *Scope, err error) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.onError == nil {
			continue
		}
		r := callErrorHandler(cur.onError, err)
		if r == nil {
			return
		}
		err = fmt.Errorf("reactive: error handler of %s panicked: %v (while handling: %w)",
			nodeLabel(KindScope, cur.id, cur.name), r, err)
	}
	reportUnhandled(err)
}

func callErrorHandler(h func(error), err error) (panicked any) {
	defer func() {
		panicked = recover()
	}()
	h(err)
	return nil
}

var unhandledHandler atomic.Pointer[func(error)]

// SetUnhandledErrorHandler sets the process-wide handler for errors that no
// Scope boundary handled: effect failures outside any boundary and
// ErrFlushBudgetExceeded. A nil handler restores the default, which logs at
// error level.
func SetUnhandledErrorHandler(h func(err error)) {
	if h == nil {
		unhandledHandler.Store(nil)
		return
	}
	unhandledHandler.Store(&h)
}

func reportUnhandled(err error) {
	if h := unhandledHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	if ee, ok := err.(*EffectExecutionError); ok {
		Logger().Error("unhandled effect error",
			"effect", ee.Effect.Name, "effect_id", ee.Effect.ID, "err", err)
		return
	}
	Logger().Error("unhandled reactive error", "err", err)
}
