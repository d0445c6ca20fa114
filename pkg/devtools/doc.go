// Package devtools streams reactive engine activity to developer tools.
//
// A Tap is an engine observer that turns callbacks into Events and hands
// them to sinks. Two sinks are provided: a Hub that broadcasts events to
// WebSocket clients and a Recorder that writes them as JSON lines to a file
// or an S3 object.
//
//	hub := devtools.NewHub(0, logger)
//	rec, _ := devtools.OpenRecording(ctx, "trace.jsonl", devtools.RecordingOptions{})
//	defer rec.Close()
//
//	tap := devtools.NewTap(hub, rec)
//	defer tap.Install()()
//
//	srv := devtools.NewServer(devtools.ServerOptions{
//	    Addr:  "localhost:7331",
//	    Hub:   hub,
//	    Graph: devtools.LoopGraph(loop, root),
//	})
//	go srv.Start(ctx)
//
// The server exposes /ws for the event stream, /graph for scope snapshots,
// /metrics for Prometheus and /healthz.
package devtools
