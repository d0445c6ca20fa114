package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/pkg/controllable"
	"github.com/vango-dev/reactive/pkg/reactive"
	"github.com/vango-dev/reactive/pkg/toast"
)

// demoGraph is the live graph the devtools command serves: a ticking
// signal drives a simulated load, a status derived from it, and alerts.
type demoGraph struct {
	root      *reactive.Scope
	tick      *reactive.IntSignal
	threshold *controllable.Value[int]
	load      *reactive.Computed[int]
	status    *reactive.Computed[string]
	alerts    *toast.Store
}

const defaultThreshold = 80

// newDemoGraph builds the graph on the calling goroutine. d receives the
// alert store's dismiss timers; nil keeps alerts until cleared.
func newDemoGraph(d toast.Dispatcher, logger *slog.Logger) *demoGraph {
	g := &demoGraph{root: reactive.NewScope(nil, reactive.WithName("demo"))}

	g.root.Run(func() {
		g.tick = reactive.NewIntSignal(0, reactive.WithName("tick"))
		g.threshold = controllable.New(defaultThreshold, controllable.OnChange(func(n int) {
			logger.Info("threshold changed", "threshold", n)
		}))
		g.load = reactive.NewComputed(func() int {
			return (g.tick.Get() * 37) % 100
		}, reactive.WithName("load"))
		g.status = reactive.NewComputed(func() string {
			if g.load.Get() >= g.threshold.Get() {
				return "busy"
			}
			return "ok"
		}, reactive.WithName("status"))

		opts := []toast.Option{toast.WithMax(5)}
		if d != nil {
			opts = append(opts, toast.WithDispatcher(d))
		}
		g.alerts = toast.New(opts...)

		reactive.NewEffect(func() {
			status := g.status.Get()
			logger.Debug("status", "status", status, "tick", g.tick.Peek())
			if status == "busy" {
				g.alerts.Warning(fmt.Sprintf("load at %d%%", g.load.Peek()))
			}
		}, reactive.EffectName("alert"), reactive.AllowWrites())
	})

	return g
}

// followConfig keeps the engine settings in step with the file at path.
// Call it on loop's goroutine.
func (g *demoGraph) followConfig(ctx context.Context, path string, loop *reactive.Loop, logger *slog.Logger) error {
	settings, err := config.NewSignal(ctx, path, loop, logger)
	if err != nil {
		return err
	}
	g.root.Run(func() {
		reactive.NewEffect(func() {
			cfg := settings.Get()
			cfg.Apply()
			logger.Info("config applied", "path", path, "strict", cfg.Engine.StrictEffects)
		}, reactive.EffectName("config"))
	})
	return nil
}

// drive advances the tick on loop every interval until ctx is done.
func (g *demoGraph) drive(ctx context.Context, loop *reactive.Loop, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loop.Dispatch(g.tick.Inc)
		}
	}
}

func (g *demoGraph) dispose() {
	g.root.Dispose()
}
