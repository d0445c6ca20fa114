package reactive

import (
	"fmt"
	"time"
)

// MaxEffectRunsPerFlush bounds the number of queued effect runs a single
// outermost flush may perform. Effects that keep re-triggering each other
// exhaust the budget; the remaining queue is dropped and
// ErrFlushBudgetExceeded is reported to the unhandled error handler.
// Zero or a negative value disables the limit.
var MaxEffectRunsPerFlush = 100000

// flush drains the queue in first-enqueue order. Listeners enqueued while
// draining (an effect writing a signal, or starting its own batch) are
// appended and run after the ones already queued.
func (ctx *TrackingContext) flush() {
	if ctx.flushing || len(ctx.queue) == 0 {
		return
	}
	ctx.flushing = true

	timed := observing()
	var start time.Time
	if timed {
		start = time.Now()
	}

	runs := 0
	completed := false
	defer func() {
		ctx.flushing = false
		if !completed {
			ctx.dropQueue(0)
		}
	}()

	budget := MaxEffectRunsPerFlush
	for i := 0; i < len(ctx.queue); i++ {
		if budget > 0 && runs >= budget {
			dropped := ctx.dropQueue(i)
			if Debug.LogFlushBudget {
				Logger().Warn("flush budget exceeded, dropping queued effects",
					"runs", runs, "dropped", dropped, "budget", budget)
			}
			reportUnhandled(fmt.Errorf("%w: %d effect runs, %d dropped", ErrFlushBudgetExceeded, runs, dropped))
			break
		}

		l := ctx.queue[i]
		ctx.queue[i] = nil
		delete(ctx.queued, l.ID())

		runs++
		if f, ok := l.(flushable); ok {
			f.runQueued()
			continue
		}
		notifyListener(l)
	}

	ctx.queue = ctx.queue[:0]
	completed = true

	if timed {
		d := time.Since(start)
		for _, o := range loadObservers() {
			o.FlushCompleted(runs, d)
		}
	}
}

// dropQueue discards queue[from:] and returns how many listeners were
// discarded.
func (ctx *TrackingContext) dropQueue(from int) int {
	n := 0
	for j := from; j < len(ctx.queue); j++ {
		if l := ctx.queue[j]; l != nil {
			delete(ctx.queued, l.ID())
			n++
		}
		ctx.queue[j] = nil
	}
	ctx.queue = ctx.queue[:0]
	return n
}

// notifyListener delivers MarkDirty to a listener that is not an effect.
// Panics are reported like effect failures so the flush keeps going.
func notifyListener(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			reportUnhandled(&EffectExecutionError{Effect: NodeInfo{ID: l.ID(), KindName: "listener"}, Value: r})
		}
	}()
	l.MarkDirty()
}
