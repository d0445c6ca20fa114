package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Devtools.Port != DefaultPort {
		t.Errorf("Devtools.Port = %d, want %d", cfg.Devtools.Port, DefaultPort)
	}
	if cfg.Devtools.Host != DefaultHost {
		t.Errorf("Devtools.Host = %q, want %q", cfg.Devtools.Host, DefaultHost)
	}
	if cfg.Engine.MaxEffectRunsPerFlush != DefaultMaxEffectRunsPerFlush {
		t.Errorf("MaxEffectRunsPerFlush = %d", cfg.Engine.MaxEffectRunsPerFlush)
	}
	if cfg.Engine.StrictEffects != "off" {
		t.Errorf("StrictEffects = %q, want off", cfg.Engine.StrictEffects)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	var re *errors.ReactiveError
	if !stderrors.As(err, &re) || re.Code != "E120" {
		t.Fatalf("Load(empty dir) = %v, want E120", err)
	}

	configJSON := `{
  "engine": {
    "devMode": true,
    "strictEffects": "warn",
    "maxEffectRunsPerFlush": -1
  },
  "devtools": {
    "port": 9000,
    "host": "0.0.0.0"
  },
  "log": {"format": "json"}
}
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Engine.DevMode || cfg.Engine.StrictEffects != "warn" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.MaxEffectRunsPerFlush != -1 {
		t.Errorf("MaxEffectRunsPerFlush = %d, want -1", cfg.Engine.MaxEffectRunsPerFlush)
	}
	if cfg.Devtools.Port != 9000 || cfg.Devtools.Host != "0.0.0.0" {
		t.Errorf("devtools = %+v", cfg.Devtools)
	}
	// Defaults still apply to unset fields.
	if cfg.Devtools.WSPath != "/ws" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Devtools, cfg.Log)
	}
	if cfg.Path() != configPath || cfg.Dir() != tmpDir {
		t.Errorf("Path() = %q, Dir() = %q", cfg.Path(), cfg.Dir())
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlDoc := `engine:
  strictEffects: panic
  logEffectRuns: true
metrics:
  namespace: app
  subsystem: graph
recording:
  bucket: traces
  region: eu-west-1
`
	if err := os.WriteFile(filepath.Join(tmpDir, "reactive.yaml"), []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.StrictEffects != "panic" || !cfg.Engine.LogEffectRuns {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Metrics.Namespace != "app" || cfg.Metrics.Subsystem != "graph" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
	if cfg.Recording.Bucket != "traces" || cfg.Recording.Prefix != "traces/" {
		t.Errorf("recording = %+v", cfg.Recording)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	var re *errors.ReactiveError
	if !stderrors.As(err, &re) {
		t.Fatalf("LoadFile() = %v, want *ReactiveError", err)
	}
	if re.Code != "E121" {
		t.Errorf("Code = %q, want E121", re.Code)
	}
	if re.Location == nil || re.Location.File != path {
		t.Errorf("Location = %v, want %s", re.Location, path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"json", ConfigFileName},
		{"yaml", "reactive.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			cfg := New()
			cfg.Engine.DevMode = true
			cfg.Devtools.Record = "trace.jsonl"

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q after SaveTo", cfg.Path())
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if !loaded.Equal(cfg) {
				t.Errorf("loaded config differs:\n got %+v\nwant %+v", loaded, cfg)
			}

			loaded.Log.Level = "debug"
			if err := loaded.Save(); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			again, _ := LoadFile(path)
			if again.Log.Level != "debug" {
				t.Errorf("Save() did not persist, level = %q", again.Log.Level)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad strict mode", func(c *Config) { c.Engine.StrictEffects = "loud" }, "strictEffects"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"upper-case level", func(c *Config) { c.Log.Level = "DEBUG" }, ""},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"port too large", func(c *Config) { c.Devtools.Port = 70000 }, "port"},
		{"relative metrics path", func(c *Config) { c.Devtools.MetricsPath = "metrics" }, "metricsPath"},
		{"same paths", func(c *Config) { c.Devtools.WSPath = "/metrics" }, "must differ"},
		{"s3 without region", func(c *Config) { c.Devtools.Record = "s3://bucket/key" }, "region"},
		{"s3 with region", func(c *Config) {
			c.Devtools.Record = "s3://bucket/key"
			c.Recording.Region = "us-east-1"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var re *errors.ReactiveError
			if !stderrors.As(err, &re) || re.Code != "E122" {
				t.Fatalf("Validate() = %v, want E122", err)
			}
			if !strings.Contains(re.Detail, tt.wantErr) {
				t.Errorf("Detail = %q, want it to mention %q", re.Detail, tt.wantErr)
			}
		})
	}
}

func TestApply(t *testing.T) {
	saved := struct {
		dev    bool
		debug  bool
		budget int
		strict reactive.StrictEffectMode
		dbg    reactive.DebugConfig
	}{reactive.DevMode, reactive.DebugMode, reactive.MaxEffectRunsPerFlush, reactive.EffectStrictMode, reactive.Debug}
	t.Cleanup(func() {
		reactive.DevMode = saved.dev
		reactive.DebugMode = saved.debug
		reactive.MaxEffectRunsPerFlush = saved.budget
		reactive.EffectStrictMode = saved.strict
		reactive.Debug = saved.dbg
	})

	cfg := New()
	cfg.Engine = EngineConfig{
		DevMode:               true,
		DebugMode:             true,
		MaxEffectRunsPerFlush: 42,
		StrictEffects:         "warn",
		LogEffectRuns:         true,
		LogStaleAccess:        true,
	}
	cfg.Apply()

	if !reactive.DevMode || !reactive.DebugMode {
		t.Error("modes not applied")
	}
	if reactive.MaxEffectRunsPerFlush != 42 {
		t.Errorf("MaxEffectRunsPerFlush = %d", reactive.MaxEffectRunsPerFlush)
	}
	if reactive.EffectStrictMode != reactive.StrictEffectWarn {
		t.Errorf("EffectStrictMode = %v", reactive.EffectStrictMode)
	}
	if !reactive.Debug.LogEffectRuns || !reactive.Debug.LogStaleAccess {
		t.Errorf("Debug = %+v", reactive.Debug)
	}
}

func TestDevtoolsAddress(t *testing.T) {
	cfg := New()
	cfg.Devtools.Host = "127.0.0.1"
	cfg.Devtools.Port = 8080

	if got := cfg.DevtoolsAddress(); got != "127.0.0.1:8080" {
		t.Errorf("DevtoolsAddress() = %q", got)
	}
	if got := cfg.DevtoolsURL(); got != "http://127.0.0.1:8080" {
		t.Errorf("DevtoolsURL() = %q", got)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nested); err == nil {
		t.Fatal("expected error without a config file")
	}

	if err := New().SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}

func TestWatchEmitsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"devtools":{"port":1000}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := Watch(ctx, path, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	first := receive(t, updates)
	if first.Devtools.Port != 1000 {
		t.Fatalf("initial port = %d", first.Devtools.Port)
	}

	// An invalid document is skipped; the next valid one comes through.
	if err := os.WriteFile(path, []byte(`{"log":{"level":"loud"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"devtools":{"port":2000}}`), 0644); err != nil {
		t.Fatal(err)
	}
	for {
		cfg := receive(t, updates)
		if cfg.Log.Level == "loud" {
			t.Fatal("invalid configuration emitted")
		}
		if cfg.Devtools.Port == 2000 {
			break
		}
	}

	cancel()
	for range updates {
	}
}

func TestNewSignalFollowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"devtools":{"port":1000}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := reactive.NewLoop(0)
	go loop.Run(ctx)

	sig, err := NewSignal(ctx, path, loop, nil)
	if err != nil {
		t.Fatalf("NewSignal() error = %v", err)
	}

	var ports []int
	if err := loop.Do(ctx, func() {
		reactive.NewEffect(func() { ports = append(ports, sig.Get().Devtools.Port) })
	}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"devtools":{"port":3000}}`), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var last int
		var n int
		if err := loop.Do(ctx, func() { n = len(ports); last = ports[n-1] }); err != nil {
			t.Fatal(err)
		}
		if last == 3000 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("signal never saw the new port, ports = %d entries, last %d", n, last)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The initial emission of the watcher carries identical settings and must
	// not have re-run the effect.
	var runs []int
	loop.Do(ctx, func() { runs = append(runs, ports...) })
	for i := 1; i < len(runs); i++ {
		if runs[i] == runs[i-1] {
			t.Errorf("effect re-ran for an identical configuration: %v", runs)
		}
	}
}

func TestForwardStopsWatchWhenLoopCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"devtools":{"port":1000}}`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchCtx, stopWatch := context.WithCancel(ctx)

	updates, err := Watch(watchCtx, path, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	loop := reactive.NewLoop(0)
	loop.Close()
	sig := reactive.NewSignal(New())

	done := make(chan struct{})
	go func() {
		forward(watchCtx, stopWatch, updates, loop, sig)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("forward did not return after the loop closed")
	}
	if watchCtx.Err() == nil {
		t.Error("watch context still live after the loop closed")
	}
	if ctx.Err() != nil {
		t.Error("parent context was cancelled")
	}
	if _, ok := <-updates; ok {
		t.Error("watch channel still open")
	}
}

func receive(t *testing.T, ch <-chan *Config) *Config {
	t.Helper()
	select {
	case cfg, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed")
		}
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config")
	}
	return nil
}

func TestRecordingDestination(t *testing.T) {
	cfg := New()
	if got := cfg.RecordingDestination("run.jsonl"); got != "" {
		t.Errorf("no recording configured, got %q", got)
	}

	cfg.Recording.Bucket = "traces"
	if got := cfg.RecordingDestination("run.jsonl"); got != "s3://traces/run.jsonl" {
		t.Errorf("bucket destination = %q", got)
	}

	cfg.Devtools.Record = "local.jsonl"
	if got := cfg.RecordingDestination("run.jsonl"); got != "local.jsonl" {
		t.Errorf("explicit destination = %q", got)
	}
}
