package devtools

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Tap is a reactive.Observer that converts engine callbacks into Events and
// fans them out to sinks.
type Tap struct {
	seq   atomic.Uint64
	mu    sync.RWMutex
	sinks []Sink
	now   func() time.Time
}

var _ reactive.Observer = (*Tap)(nil)

// NewTap creates a tap publishing to sinks.
func NewTap(sinks ...Sink) *Tap {
	return &Tap{sinks: sinks, now: time.Now}
}

// Attach adds a sink.
func (t *Tap) Attach(s Sink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, s)
	t.mu.Unlock()
}

// Install adds the tap to the engine. The returned function removes it.
func (t *Tap) Install() (remove func()) {
	return reactive.AddObserver(t)
}

func (t *Tap) publish(ev Event) {
	ev.Seq = t.seq.Add(1)
	ev.Time = t.now()

	t.mu.RLock()
	sinks := t.sinks
	t.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(ev)
	}
}

// SignalWritten implements reactive.Observer.
func (t *Tap) SignalWritten(node reactive.NodeInfo) {
	t.publish(Event{Type: EventSignalWrite, Node: &node})
}

// ComputedEvaluated implements reactive.Observer.
func (t *Tap) ComputedEvaluated(node reactive.NodeInfo, d time.Duration, err error) {
	t.publish(Event{Type: EventComputed, Node: &node, Duration: d, Error: errString(err)})
}

// EffectRan implements reactive.Observer.
func (t *Tap) EffectRan(node reactive.NodeInfo, d time.Duration, err error) {
	t.publish(Event{Type: EventEffect, Node: &node, Duration: d, Error: errString(err)})
}

// FlushCompleted implements reactive.Observer.
func (t *Tap) FlushCompleted(runs int, d time.Duration) {
	t.publish(Event{Type: EventFlush, Runs: runs, Duration: d})
}

// ScopeDisposed implements reactive.Observer.
func (t *Tap) ScopeDisposed(node reactive.NodeInfo) {
	t.publish(Event{Type: EventScopeDispose, Node: &node})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
