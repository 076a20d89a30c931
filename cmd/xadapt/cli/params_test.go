// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"
)

type recordTestParams struct {
	Interval time.Duration `flag:"interval"    desc:"sampling interval"    default:"50ms"`
	CPUs     string        `flag:"cpus,c"      desc:"CPU list"`
	Knobs    []string      `flag:"knob"        desc:"knob names"`
	Count    int           `flag:"count"       desc:"sample count"         default:"10"`
	Store    bool          `flag:"store"       desc:"write to sample store"`
	RunID    int64         `flag:"run"         desc:"run id"`

	untagged string
}

func TestBindFlags_Defaults(t *testing.T) {
	var params recordTestParams
	flagSet := FlagsFromParams("record", &params)

	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if params.Interval != 50*time.Millisecond {
		t.Errorf("Interval = %v, want 50ms", params.Interval)
	}
	if params.Count != 10 {
		t.Errorf("Count = %d, want 10", params.Count)
	}
	if params.CPUs != "" || params.Store || params.RunID != 0 || len(params.Knobs) != 0 {
		t.Errorf("untagged defaults not zero: %+v", params)
	}
}

func TestBindFlags_ParsesValues(t *testing.T) {
	var params recordTestParams
	flagSet := FlagsFromParams("record", &params)

	args := []string{
		"--interval", "10ms",
		"-c", "0-3",
		"--knob", "Intel_Target_PState",
		"--knob", "Intel_Uncore_Frequency",
		"--count", "100",
		"--store",
		"--run", "7",
	}
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if params.Interval != 10*time.Millisecond {
		t.Errorf("Interval = %v, want 10ms", params.Interval)
	}
	if params.CPUs != "0-3" {
		t.Errorf("CPUs = %q, want 0-3", params.CPUs)
	}
	if len(params.Knobs) != 2 || params.Knobs[0] != "Intel_Target_PState" {
		t.Errorf("Knobs = %v, want two knob names", params.Knobs)
	}
	if params.Count != 100 || !params.Store || params.RunID != 7 {
		t.Errorf("parsed params = %+v", params)
	}
}

func TestBindFlags_EmbeddedStruct(t *testing.T) {
	type outputParams struct {
		Out string `flag:"out,o" desc:"output path"`
	}
	type params struct {
		outputParams
		Verbose bool `flag:"verbose,v" desc:"verbose output"`
	}

	var p params
	flagSet := FlagsFromParams("dump", &p)
	if err := flagSet.Parse([]string{"-o", "run.xrec", "-v"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.Out != "run.xrec" || !p.Verbose {
		t.Errorf("parsed params = %+v", p)
	}
}

func TestBindFlags_RejectsNonPointer(t *testing.T) {
	var params recordTestParams
	flagSet := FlagsFromParams("record", &params)
	_ = flagSet

	err := BindFlags(params, flagSet)
	if err == nil || !strings.Contains(err.Error(), "pointer to a struct") {
		t.Errorf("BindFlags(non-pointer) error = %v, want pointer complaint", err)
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	type bad struct {
		M map[string]string `flag:"m"`
	}
	var params bad
	err := BindFlags(&params, FlagsFromParams("empty", &struct{}{}))
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("BindFlags(map field) error = %v, want unsupported type", err)
	}
}

func TestBindFlags_BadDefault(t *testing.T) {
	type bad struct {
		Interval time.Duration `flag:"interval" default:"not-a-duration"`
	}
	var params bad
	err := BindFlags(&params, FlagsFromParams("empty", &struct{}{}))
	if err == nil || !strings.Contains(err.Error(), "default for --interval") {
		t.Errorf("BindFlags(bad default) error = %v, want default parse failure", err)
	}
}
