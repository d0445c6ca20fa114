package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/devtools"
	"github.com/vango-dev/reactive/pkg/metrics"
	"github.com/vango-dev/reactive/pkg/reactive"
	"github.com/vango-dev/reactive/pkg/tracing"
)

type devtoolsOptions struct {
	port     int
	host     string
	interval time.Duration
	record   string
}

func devtoolsCmd(opts *globalOptions) *cobra.Command {
	var o devtoolsOptions

	cmd := &cobra.Command{
		Use:   "devtools",
		Short: "Serve devtools for a live demo graph",
		Long: `Run a small reactive graph on an event loop and serve its devtools.

The server streams engine events over WebSocket, returns scope
snapshots from /graph and exposes Prometheus metrics. When a
configuration file is in use, edits to it are applied live.

Examples:
  reactive devtools
  reactive devtools --port=9000 --interval=100ms
  reactive devtools --record=events.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevtools(cmd, opts, o)
		},
	}

	cmd.Flags().IntVarP(&o.port, "port", "p", 0, "Port to listen on (default from reactive.json)")
	cmd.Flags().StringVarP(&o.host, "host", "H", "", "Host to bind to (default from reactive.json)")
	cmd.Flags().DurationVar(&o.interval, "interval", time.Second, "Tick interval of the demo graph")
	cmd.Flags().StringVar(&o.record, "record", "", "Record engine events to a file or s3://bucket/key")

	return cmd
}

func runDevtools(cmd *cobra.Command, opts *globalOptions, o devtoolsOptions) error {
	if o.interval <= 0 {
		return errors.Newf(errors.CategoryCLI, "--interval must be positive, got %s", o.interval)
	}

	cfg, logger, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if o.port > 0 {
		cfg.Devtools.Port = o.port
	}
	if o.host != "" {
		cfg.Devtools.Host = o.host
	}
	if o.record != "" {
		cfg.Devtools.Record = o.record
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	_, removeMetrics := metrics.Install(
		metrics.WithRegistry(registry),
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
	)
	defer removeMetrics()

	if cfg.Tracing.Enabled {
		_, removeTracing := tracing.Install(
			tracing.WithTracerName(cfg.Tracing.TracerName),
			tracing.WithContext(ctx),
		)
		defer removeTracing()
	}

	hub := devtools.NewHub(0, logger)
	tap := devtools.NewTap(hub)

	if dest := cfg.RecordingDestination("devtools-" + time.Now().UTC().Format("20060102T150405Z") + ".jsonl"); dest != "" {
		recorder, err := devtools.OpenRecording(ctx, dest, devtools.RecordingOptions{
			Region:   cfg.Recording.Region,
			Endpoint: cfg.Recording.Endpoint,
			Prefix:   cfg.Recording.Prefix,
		})
		if err != nil {
			return err
		}
		tap.Attach(recorder)
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("recording failed", "destination", dest, "error", err)
				return
			}
			logger.Info("recording saved", "destination", dest, "events", recorder.Events())
		}()
	}
	removeTap := tap.Install()
	defer removeTap()

	loop := reactive.NewLoop(0)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	var graph *demoGraph
	if err := loop.Do(ctx, func() { graph = newDemoGraph(loop, logger) }); err != nil {
		return err
	}
	defer loop.Do(context.Background(), graph.dispose)

	if path := cfg.Path(); path != "" {
		var followErr error
		if err := loop.Do(ctx, func() { followErr = graph.followConfig(ctx, path, loop, logger) }); err != nil {
			return err
		}
		if followErr != nil {
			logger.Warn("config changes will not be applied", "path", path, "error", followErr)
		}
	}

	go graph.drive(ctx, loop, o.interval)

	server := devtools.NewServer(devtools.ServerOptions{
		Addr:        cfg.DevtoolsAddress(),
		WSPath:      cfg.Devtools.WSPath,
		MetricsPath: cfg.Devtools.MetricsPath,
		Hub:         hub,
		Gatherer:    registry,
		Graph:       devtools.LoopGraph(loop, graph.root),
		Logger:      logger,
	})

	w := cmd.OutOrStdout()
	printBanner(w)
	info(w, "devtools  %s", cfg.DevtoolsURL())
	info(w, "events    ws://%s%s", cfg.DevtoolsAddress(), cfg.Devtools.WSPath)
	info(w, "metrics   %s%s", cfg.DevtoolsURL(), cfg.Devtools.MetricsPath)
	info(w, "graph     %s/graph", cfg.DevtoolsURL())
	if cfg.Devtools.Port == 0 {
		warn(w, "Port 0 picks a free port; see the log for the bound address")
	}

	return server.Start(ctx)
}
