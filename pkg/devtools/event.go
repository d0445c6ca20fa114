package devtools

import (
	"time"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// EventType identifies an engine event.
type EventType string

const (
	EventSignalWrite  EventType = "signal.write"
	EventComputed     EventType = "computed.evaluate"
	EventEffect       EventType = "effect.run"
	EventFlush        EventType = "flush"
	EventScopeDispose EventType = "scope.dispose"
)

// Event is one engine event as sent to devtools clients and written to
// recordings, one JSON object per line.
type Event struct {
	Seq  uint64    `json:"seq"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	// Node is the node the event is about. Nil for flushes.
	Node *reactive.NodeInfo `json:"node,omitempty"`

	// Duration is the run time in nanoseconds.
	Duration time.Duration `json:"durationNs,omitempty"`

	// Runs is the number of queued runs in a flush.
	Runs int `json:"runs,omitempty"`

	// Error is the failure message of a compute or effect run.
	Error string `json:"error,omitempty"`
}

// Sink receives events. Publish is called from whichever goroutine drives
// a graph and must not block for long.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev Event) { f(ev) }
