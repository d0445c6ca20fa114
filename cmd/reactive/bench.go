package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"runtime/metrics"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/devtools"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// scenario is one benchmarked graph shape. build creates the graph inside a
// fresh root and returns the per-iteration write plus the root's dispose.
type scenario struct {
	name        string
	description string
	build       func(size int) (step func(i int), dispose func())
}

var scenarios = []scenario{
	{
		name:        "chain",
		description: "one signal feeding a chain of <size> computeds and an effect",
		build:       buildChain,
	},
	{
		name:        "diamond",
		description: "one signal fanning out to <size> computeds joined by a sum",
		build:       buildDiamond,
	},
	{
		name:        "fanout",
		description: "one signal observed directly by <size> effects",
		build:       buildFanout,
	},
	{
		name:        "batch",
		description: "<size> signals written together in a batch",
		build:       buildBatch,
	},
	{
		name:        "dynamic",
		description: "a computed switching between two halves of <size> signals",
		build:       buildDynamic,
	},
}

func findScenario(name string) (scenario, error) {
	for _, sc := range scenarios {
		if sc.name == name {
			return sc, nil
		}
	}
	return scenario{}, errors.New("E140").WithDetail("No scenario named " + name)
}

type benchConfig struct {
	Scenarios  []string
	Iterations int
	Size       int
	JSONOutput string
	Record     string
}

func benchCmd(opts *globalOptions) *cobra.Command {
	var (
		cfg  benchConfig
		list bool
	)

	cmd := &cobra.Command{
		Use:   "bench [scenario...]",
		Short: "Benchmark the engine on common graph shapes",
		Long: `Run micro-benchmarks of signal writes through typical graph shapes.

Each iteration performs one write (or one batch of writes) and waits for
the resulting flush. Without arguments every scenario runs.

Examples:
  reactive bench
  reactive bench diamond --size=1000
  reactive bench --json=results.json
  reactive bench chain --record=s3://traces/chain.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				writeScenarioList(cmd.OutOrStdout())
				return nil
			}
			cfg.Scenarios = args
			return runBench(cmd, opts, cfg)
		},
	}

	cmd.Flags().IntVarP(&cfg.Iterations, "iterations", "n", 10000, "Writes per scenario")
	cmd.Flags().IntVar(&cfg.Size, "size", 100, "Graph size per scenario")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", "", "Write a JSON report to this path (- for stdout)")
	cmd.Flags().StringVar(&cfg.Record, "record", "", "Record engine events to a file or s3://bucket/key")
	cmd.Flags().BoolVar(&list, "list", false, "List the available scenarios")

	return cmd
}

func writeScenarioList(w io.Writer) {
	for _, sc := range scenarios {
		fmt.Fprintf(w, "  %-10s %s\n", sc.name, sc.description)
	}
}

func runBench(cmd *cobra.Command, opts *globalOptions, cfg benchConfig) error {
	if cfg.Iterations <= 0 {
		return errors.Newf(errors.CategoryCLI, "--iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.Size < 2 {
		return errors.Newf(errors.CategoryCLI, "--size must be at least 2, got %d", cfg.Size)
	}

	selected := scenarios
	if len(cfg.Scenarios) > 0 {
		selected = make([]scenario, 0, len(cfg.Scenarios))
		for _, name := range cfg.Scenarios {
			sc, err := findScenario(name)
			if err != nil {
				return err
			}
			selected = append(selected, sc)
		}
	}

	settings, logger, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dest := cfg.Record
	if dest == "" {
		dest = settings.RecordingDestination("bench-" + time.Now().UTC().Format("20060102T150405Z") + ".jsonl")
	}

	var recorder *devtools.Recorder
	if dest != "" {
		recorder, err = devtools.OpenRecording(cmd.Context(), dest, devtools.RecordingOptions{
			Region:   settings.Recording.Region,
			Endpoint: settings.Recording.Endpoint,
			Prefix:   settings.Recording.Prefix,
		})
		if err != nil {
			return err
		}
		remove := devtools.NewTap(recorder).Install()
		defer remove()
	}

	report := benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Iterations: cfg.Iterations,
		Size:       cfg.Size,
	}
	for _, sc := range selected {
		logger.Debug("running scenario", "scenario", sc.name, "iterations", cfg.Iterations, "size", cfg.Size)
		report.Results = append(report.Results, runScenario(sc, cfg.Iterations, cfg.Size))
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return err
		}
		report.Recording = &recordingInfo{Destination: dest, Events: recorder.Events()}
	}

	out := cmd.OutOrStdout()
	if cfg.JSONOutput != "-" {
		writeSummary(out, report)
	}
	if cfg.JSONOutput != "" {
		if err := writeJSON(out, cfg.JSONOutput, report); err != nil {
			return err
		}
	}
	return nil
}

// runCounter counts engine work during a scenario.
type runCounter struct {
	reactive.NopObserver

	computeds atomic.Uint64
	effects   atomic.Uint64
	flushes   atomic.Uint64
}

func (c *runCounter) ComputedEvaluated(reactive.NodeInfo, time.Duration, error) { c.computeds.Add(1) }
func (c *runCounter) EffectRan(reactive.NodeInfo, time.Duration, error)         { c.effects.Add(1) }
func (c *runCounter) FlushCompleted(int, time.Duration)                         { c.flushes.Add(1) }

func runScenario(sc scenario, iterations, size int) scenarioResult {
	counter := &runCounter{}
	remove := reactive.AddObserver(counter)
	defer remove()

	step, dispose := sc.build(size)
	counter.computeds.Store(0)
	counter.effects.Store(0)
	counter.flushes.Store(0)

	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	samples := make([]time.Duration, iterations)
	start := time.Now()
	for i := 0; i < iterations; i++ {
		t0 := time.Now()
		step(i)
		samples[i] = time.Since(t0)
	}
	elapsed := time.Since(start)

	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()
	dispose()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return scenarioResult{
		Scenario:   sc.name,
		ElapsedMS:  ms(elapsed),
		OpsPerSec:  float64(iterations) / math.Max(1e-9, elapsed.Seconds()),
		LatencyUS:  latencyFor(samples),
		Computeds:  counter.computeds.Load(),
		EffectRuns: counter.effects.Load(),
		Flushes:    counter.flushes.Load(),
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
	}
}

// inRoot runs build inside a new root scope.
func inRoot(build func() func(i int)) (step func(i int), dispose func()) {
	dispose = reactive.CreateRoot(func(dispose func()) func() {
		step = build()
		return dispose
	})
	return step, dispose
}

func buildChain(size int) (func(int), func()) {
	return inRoot(func() func(int) {
		src := reactive.NewSignal(0, reactive.WithName("source"))
		prev := src.Get
		for i := 0; i < size; i++ {
			p := prev
			prev = reactive.NewComputed(func() int { return p() + 1 }).Get
		}
		var sink int
		last := prev
		reactive.NewEffect(func() { sink = last() })
		_ = sink
		return func(i int) { src.Set(i + 1) }
	})
}

func buildDiamond(size int) (func(int), func()) {
	return inRoot(func() func(int) {
		src := reactive.NewSignal(0, reactive.WithName("source"))
		branches := make([]*reactive.Computed[int], size)
		for i := range branches {
			k := i + 1
			branches[i] = reactive.NewComputed(func() int { return src.Get() * k })
		}
		sum := reactive.NewComputed(func() int {
			total := 0
			for _, b := range branches {
				total += b.Get()
			}
			return total
		}, reactive.WithName("sum"))
		var sink int
		reactive.NewEffect(func() { sink = sum.Get() })
		_ = sink
		return func(i int) { src.Set(i + 1) }
	})
}

func buildFanout(size int) (func(int), func()) {
	return inRoot(func() func(int) {
		src := reactive.NewSignal(0, reactive.WithName("source"))
		sinks := make([]int, size)
		for i := range sinks {
			i := i
			reactive.NewEffect(func() { sinks[i] = src.Get() })
		}
		return func(i int) { src.Set(i + 1) }
	})
}

func buildBatch(size int) (func(int), func()) {
	return inRoot(func() func(int) {
		sources := make([]*reactive.Signal[int], size)
		for i := range sources {
			sources[i] = reactive.NewSignal(0)
		}
		sum := reactive.NewComputed(func() int {
			total := 0
			for _, s := range sources {
				total += s.Get()
			}
			return total
		}, reactive.WithName("sum"))
		var sink int
		reactive.NewEffect(func() { sink = sum.Get() })
		_ = sink
		return func(i int) {
			reactive.Batch(func() {
				for j, s := range sources {
					s.Set(i + j + 1)
				}
			})
		}
	})
}

func buildDynamic(size int) (func(int), func()) {
	return inRoot(func() func(int) {
		useLeft := reactive.NewBoolSignal(true, reactive.WithName("useLeft"))
		left := make([]*reactive.Signal[int], size/2)
		right := make([]*reactive.Signal[int], size-size/2)
		for i := range left {
			left[i] = reactive.NewSignal(0)
		}
		for i := range right {
			right[i] = reactive.NewSignal(0)
		}
		total := reactive.NewComputed(func() int {
			side := right
			if useLeft.Get() {
				side = left
			}
			n := 0
			for _, s := range side {
				n += s.Get()
			}
			return n
		}, reactive.WithName("total"))
		var sink int
		reactive.NewEffect(func() { sink = total.Get() })
		_ = sink
		return func(i int) {
			reactive.Batch(func() {
				useLeft.Toggle()
				left[i%len(left)].Set(i + 1)
				right[i%len(right)].Set(i + 1)
			})
		}
	})
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		if s.Value.Kind() == metrics.KindBad {
			continue
		}
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func latencyFor(sorted []time.Duration) latencyInfo {
	if len(sorted) == 0 {
		return latencyInfo{}
	}
	return latencyInfo{
		Min: us(sorted[0]),
		P50: us(percentile(sorted, 0.50)),
		P95: us(percentile(sorted, 0.95)),
		P99: us(percentile(sorted, 0.99)),
		Max: us(sorted[len(sorted)-1]),
	}
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

type benchReport struct {
	Version    string           `json:"version"`
	Run        runInfo          `json:"run"`
	Iterations int              `json:"iterations"`
	Size       int              `json:"size"`
	Results    []scenarioResult `json:"results"`
	Recording  *recordingInfo   `json:"recording,omitempty"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type scenarioResult struct {
	Scenario   string      `json:"scenario"`
	ElapsedMS  float64     `json:"elapsed_ms"`
	OpsPerSec  float64     `json:"ops_per_sec"`
	LatencyUS  latencyInfo `json:"latency_us"`
	Computeds  uint64      `json:"computed_evaluations"`
	EffectRuns uint64      `json:"effect_runs"`
	Flushes    uint64      `json:"flushes"`
	GC         gcInfo      `json:"gc"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type recordingInfo struct {
	Destination string `json:"destination"`
	Events      int    `json:"events"`
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Reactive Engine Benchmark ===")
	fmt.Fprintf(w, "Iterations: %d\n", report.Iterations)
	fmt.Fprintf(w, "Size: %d\n", report.Size)
	fmt.Fprintln(w)

	for _, r := range report.Results {
		fmt.Fprintf(w, "%s:\n", r.Scenario)
		fmt.Fprintf(w, "  throughput: %.0f writes/s (%.2f ms total)\n", r.OpsPerSec, r.ElapsedMS)
		fmt.Fprintf(w, "  latency:    min %.2f  p50 %.2f  p95 %.2f  p99 %.2f  max %.2f us\n",
			r.LatencyUS.Min, r.LatencyUS.P50, r.LatencyUS.P95, r.LatencyUS.P99, r.LatencyUS.Max)
		fmt.Fprintf(w, "  work:       %d computeds, %d effect runs, %d flushes\n", r.Computeds, r.EffectRuns, r.Flushes)
		fmt.Fprintf(w, "  gc:         %.2f MB alloc, %d cycles, %.2f%% cpu\n", r.GC.AllocMB, r.GC.NumGC, r.GC.GCCPUFraction*100)
		fmt.Fprintln(w)
	}

	if report.Recording != nil {
		fmt.Fprintf(w, "Recorded %d events to %s\n", report.Recording.Events, report.Recording.Destination)
	}
}

func writeJSON(stdout io.Writer, path string, report benchReport) error {
	out := stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("REACTIVE_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
