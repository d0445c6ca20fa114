package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/reactive/pkg/devtools"
)

func TestScenarios(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			result := runScenario(sc, 20, 4)
			if result.Scenario != sc.name {
				t.Errorf("Scenario = %q", result.Scenario)
			}
			if result.EffectRuns == 0 {
				t.Error("no effect runs recorded")
			}
			if result.LatencyUS.Max < result.LatencyUS.P50 {
				t.Errorf("latency max %.2f below p50 %.2f", result.LatencyUS.Max, result.LatencyUS.P50)
			}
		})
	}
}

func TestScenarioWork(t *testing.T) {
	tests := []struct {
		name          string
		wantEffects   uint64
		wantComputeds uint64
	}{
		// 10 writes, size 4.
		{"chain", 10, 40},
		{"diamond", 10, 50},
		{"fanout", 40, 0},
		{"batch", 10, 10},
		{"dynamic", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := findScenario(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			result := runScenario(sc, 10, 4)
			if result.EffectRuns != tt.wantEffects {
				t.Errorf("EffectRuns = %d, want %d", result.EffectRuns, tt.wantEffects)
			}
			if result.Computeds != tt.wantComputeds {
				t.Errorf("Computeds = %d, want %d", result.Computeds, tt.wantComputeds)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.95, 10},
		{0.99, 10},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("percentile(nil) = %v", got)
	}
}

func TestBenchList(t *testing.T) {
	out, _, err := execute(t, "bench", "--list")
	if err != nil {
		t.Fatalf("bench --list: %v", err)
	}
	for _, sc := range scenarios {
		if !strings.Contains(out, sc.name) {
			t.Errorf("--list missing %q", sc.name)
		}
	}
}

func TestBenchRejectsInput(t *testing.T) {
	path := writeConfig(t, "reactive.json", `{}`)

	_, _, err := execute(t, "--config", path, "bench", "nope")
	if code := errorCode(err); code != "E140" {
		t.Errorf("unknown scenario error = %v, want E140", err)
	}

	_, _, err = execute(t, "--config", path, "bench", "-n", "0")
	if err == nil {
		t.Error("zero iterations accepted")
	}
}

func TestBenchJSONReport(t *testing.T) {
	path := writeConfig(t, "reactive.json", `{}`)

	out, _, err := execute(t, "--config", path, "bench", "chain", "diamond", "-n", "25", "--size", "4", "--json=-")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	var report benchReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	if report.Iterations != 25 || report.Size != 4 {
		t.Errorf("report workload = %d/%d", report.Iterations, report.Size)
	}
	if len(report.Results) != 2 || report.Results[0].Scenario != "chain" || report.Results[1].Scenario != "diamond" {
		t.Fatalf("results = %+v", report.Results)
	}
	if report.Results[0].EffectRuns != 25 {
		t.Errorf("chain effect runs = %d, want 25", report.Results[0].EffectRuns)
	}
	if report.Recording != nil {
		t.Errorf("unexpected recording %+v", report.Recording)
	}
}

func TestBenchRecord(t *testing.T) {
	path := writeConfig(t, "reactive.json", `{}`)
	dest := filepath.Join(t.TempDir(), "events.jsonl")

	out, _, err := execute(t, "--config", path, "bench", "fanout", "-n", "5", "--size", "3", "--record", dest)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	if !strings.Contains(out, "Recorded") {
		t.Errorf("summary does not mention the recording:\n%s", out)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	events, err := devtools.ReadRecording(f)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	runs := 0
	for _, ev := range events {
		if ev.Type == devtools.EventEffect {
			runs++
		}
	}
	// Three effects run once on creation and once per write.
	if runs != 3*6 {
		t.Errorf("recorded %d effect runs, want 18", runs)
	}
}
