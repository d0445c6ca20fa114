package reactive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrLoopClosed is returned by Loop.Do after Close.
var ErrLoopClosed = errors.New("reactive: loop closed")

// DefaultLoopQueueSize is the dispatch queue capacity used by NewLoop when
// size is not positive.
const DefaultLoopQueueSize = 256

// Loop serializes work onto the one goroutine that drives a graph.
// Timers, watchers and network handlers call Dispatch from any goroutine;
// the owning goroutine calls Run, which executes each function inside a
// batch so its writes are flushed together.
type Loop struct {
	dispatchCh chan func()
	done       chan struct{}
	closed     atomic.Bool
	closeOnce  sync.Once
}

// NewLoop creates a loop with a dispatch queue of the given capacity.
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = DefaultLoopQueueSize
	}
	return &Loop{
		dispatchCh: make(chan func(), size),
		done:       make(chan struct{}),
	}
}

// Dispatch queues fn to run on the loop goroutine. It never blocks: when
// the queue is full the function is discarded with a warning and Dispatch
// returns false. Functions dispatched after Close are discarded.
func (l *Loop) Dispatch(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.dispatchCh <- fn:
		return true
	case <-l.done:
		return false
	default:
		Logger().Warn("dispatch queue full, discarding callback", "capacity", cap(l.dispatchCh))
		return false
	}
}

// Do queues fn and waits until it has run. It must not be called from the
// loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	if l.closed.Load() {
		return ErrLoopClosed
	}
	select {
	case l.dispatchCh <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes dispatched functions on the calling goroutine until ctx is
// cancelled or Close is called. It returns ctx.Err() on cancellation and
// nil after Close. A panicking function is reported to the unhandled error
// handler and the loop keeps going.
func (l *Loop) Run(ctx context.Context) error {
	defer cleanupGoroutineContext()
	for {
		select {
		case fn := <-l.dispatchCh:
			l.run(fn)
		case <-l.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("reactive: dispatched function panicked: %v", r)
			}
			reportUnhandled(err)
		}
	}()
	Batch(fn)
}

// Close stops the loop. Queued functions that have not run are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}
