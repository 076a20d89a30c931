// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/config"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/dump"
)

func testConfig() *config.Config {
	configuration := config.Default()
	configuration.Interval = 50 * time.Millisecond
	configuration.Store = "/tmp/samples.db"
	return configuration
}

func TestSessionFromFlags(t *testing.T) {
	params := recordParams{
		Knobs:    []string{"Intel_Target_PState"},
		CPUs:     "0-1",
		Interval: 10 * time.Millisecond,
		Duration: time.Second,
		Out:      "run.xrec",
	}

	resolved, err := sessionFromFlags(params, testConfig())
	if err != nil {
		t.Fatalf("sessionFromFlags: %v", err)
	}
	if len(resolved.cpus) != 2 || resolved.cpus[0] != 0 || resolved.cpus[1] != 1 {
		t.Errorf("cpus = %v, want [0 1]", resolved.cpus)
	}
	if resolved.interval != 10*time.Millisecond {
		t.Errorf("interval = %v, want 10ms", resolved.interval)
	}
	if resolved.outPath != "run.xrec" || resolved.storePath != "" {
		t.Errorf("destination = %q/%q, want dump only", resolved.outPath, resolved.storePath)
	}
	if resolved.compression != dump.CompressionZstd {
		t.Errorf("compression = %v, want zstd default", resolved.compression)
	}
}

func TestSessionFromFlags_IntervalDefaultsFromConfig(t *testing.T) {
	params := recordParams{
		Knobs: []string{"Intel_Target_PState"},
		CPUs:  "0",
		Store: true,
	}

	resolved, err := sessionFromFlags(params, testConfig())
	if err != nil {
		t.Fatalf("sessionFromFlags: %v", err)
	}
	if resolved.interval != 50*time.Millisecond {
		t.Errorf("interval = %v, want the config default", resolved.interval)
	}
	if resolved.storePath != "/tmp/samples.db" {
		t.Errorf("storePath = %q, want the config store", resolved.storePath)
	}
}

func TestSessionFromFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params recordParams
		want   string
	}{
		{
			name:   "no knobs",
			params: recordParams{Out: "run.xrec"},
			want:   "at least one --knob",
		},
		{
			name:   "no destination",
			params: recordParams{Knobs: []string{"A"}},
			want:   "no destination",
		},
		{
			name:   "both destinations",
			params: recordParams{Knobs: []string{"A"}, Out: "run.xrec", Store: true},
			want:   "mutually exclusive",
		},
		{
			name:   "bad compression",
			params: recordParams{Knobs: []string{"A"}, Out: "run.xrec", Compression: "gzip"},
			want:   "compression",
		},
		{
			name:   "bad cpu list",
			params: recordParams{Knobs: []string{"A"}, Out: "run.xrec", CPUs: "0-x"},
			want:   "cpu",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := sessionFromFlags(test.params, testConfig())
			if err == nil {
				t.Fatal("sessionFromFlags succeeded")
			}
			if !strings.Contains(strings.ToLower(err.Error()), test.want) {
				t.Errorf("error = %q, want mention of %q", err, test.want)
			}
		})
	}
}

func TestSessionFromPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.jsonc")
	content := `{
  // Knobs worth watching while the machine is idle.
  "knobs": ["Intel_Target_PState", "Intel_Uncore_Frequency"],
  "cpus": "0-3",
  "interval": "25ms",
  "duration": "5s",
  "output": {"path": "sweep.xrec", "compression": "lz4"},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := sessionFromPlan(path, testConfig())
	if err != nil {
		t.Fatalf("sessionFromPlan: %v", err)
	}
	if resolved.planName != "sweep" {
		t.Errorf("planName = %q, want sweep", resolved.planName)
	}
	if len(resolved.knobs) != 2 {
		t.Errorf("knobs = %v, want 2", resolved.knobs)
	}
	if len(resolved.cpus) != 4 {
		t.Errorf("cpus = %v, want [0 1 2 3]", resolved.cpus)
	}
	if resolved.interval != 25*time.Millisecond || resolved.duration != 5*time.Second {
		t.Errorf("timing = %v/%v, want 25ms/5s", resolved.interval, resolved.duration)
	}
	if resolved.outPath != "sweep.xrec" || resolved.compression != dump.CompressionLZ4 {
		t.Errorf("output = %q %v, want sweep.xrec lz4", resolved.outPath, resolved.compression)
	}
}

func TestSessionFromPlan_DefaultsToConfigStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.jsonc")
	content := `{"knobs": ["Intel_Target_PState"], "cpus": "0"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := sessionFromPlan(path, testConfig())
	if err != nil {
		t.Fatalf("sessionFromPlan: %v", err)
	}
	if resolved.storePath != "/tmp/samples.db" {
		t.Errorf("storePath = %q, want the config store", resolved.storePath)
	}
	if resolved.interval != 50*time.Millisecond {
		t.Errorf("interval = %v, want the config default", resolved.interval)
	}
}
