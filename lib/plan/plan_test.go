// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_FullPlan(t *testing.T) {
	parsed, err := Parse([]byte(`{
		// Uncore frequency sweep for the benchmark nodes.
		"name": "uncore-sweep",
		"knobs": [
			"Intel_UNCORE_FREQUENCY_MIN",
			"Intel_UNCORE_FREQUENCY_MAX",
		],
		"cpus": "0-3,8",
		"interval": "100ms",
		"duration": "30s",
		"output": {
			"path": "sweep.xrec",
			"compression": "lz4",
		},
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Name != "uncore-sweep" {
		t.Errorf("name = %q", parsed.Name)
	}
	if len(parsed.Knobs) != 2 {
		t.Errorf("got %d knobs, want 2", len(parsed.Knobs))
	}

	mask, ok, err := parsed.CPUMask()
	if err != nil || !ok {
		t.Fatalf("CPUMask: ok=%v err=%v", ok, err)
	}
	if got := mask.String(); got != "0-3,8" {
		t.Errorf("cpu mask = %q, want 0-3,8", got)
	}

	interval, err := parsed.ParsedInterval()
	if err != nil || interval != 100*time.Millisecond {
		t.Errorf("interval = %v err=%v, want 100ms", interval, err)
	}
	duration, err := parsed.ParsedDuration()
	if err != nil || duration != 30*time.Second {
		t.Errorf("duration = %v err=%v, want 30s", duration, err)
	}
}

func TestParse_DefaultsLeftOpen(t *testing.T) {
	parsed, err := Parse([]byte(`{"knobs": ["Intel_HWP_EPP"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, ok, _ := parsed.CPUMask(); ok {
		t.Error("expected no explicit CPU selection")
	}
	if interval, _ := parsed.ParsedInterval(); interval != 0 {
		t.Errorf("interval = %v, want 0 (recorder default)", interval)
	}
	if duration, _ := parsed.ParsedDuration(); duration != 0 {
		t.Errorf("duration = %v, want 0 (until interrupted)", duration)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no knobs", `{"knobs": []}`, "at least one"},
		{"empty knob", `{"knobs": [""]}`, "empty name"},
		{"duplicate knob", `{"knobs": ["A", "A"]}`, "listed twice"},
		{"bad cpus", `{"knobs": ["A"], "cpus": "3-1"}`, "cpus"},
		{"bad interval", `{"knobs": ["A"], "interval": "soon"}`, "interval"},
		{"negative duration", `{"knobs": ["A"], "duration": "-1s"}`, "duration"},
		{"unknown field", `{"knobs": ["A"], "knbos": ["B"]}`, "unknown field"},
		{"two outputs", `{"knobs": ["A"], "output": {"path": "a.xrec", "store": "a.db"}}`, "mutually exclusive"},
		{"bad compression", `{"knobs": ["A"], "output": {"compression": "xz"}}`, "compression"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %q", err, test.want)
			}
		})
	}
}

func TestLoad_NameFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly-uncore.jsonc")
	if err := os.WriteFile(path, []byte(`{"knobs": ["A"]}`), 0o644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "nightly-uncore" {
		t.Errorf("name = %q, want nightly-uncore", loaded.Name)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Fatal("expected error for missing plan file")
	}
}
