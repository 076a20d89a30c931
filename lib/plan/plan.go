// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan provides parsing and validation for recording plan
// files. A plan names the knobs, CPUs, cadence, and output of one
// recording session so that a measurement setup can be shared and
// reviewed instead of retyped as flags.
//
// Plans are authored as JSONC (JSON extended with comments and
// trailing commas) so that a committed plan can document itself.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/affinity"
)

// Plan describes one recording session.
type Plan struct {
	// Name identifies the plan in run metadata and logs. Defaults to
	// the file name when loaded from disk.
	Name string `json:"name,omitempty"`

	// Knobs are the configuration item names to record. Required.
	Knobs []string `json:"knobs"`

	// CPUs selects the CPUs to record on, in kernel cpu-list syntax
	// ("0-3,8"). Empty means every CPU the device tree exposes.
	CPUs string `json:"cpus,omitempty"`

	// Interval is the sampling period as a Go duration string.
	// Empty means the recorder default (50ms).
	Interval string `json:"interval,omitempty"`

	// Duration bounds the recording as a Go duration string. Empty or
	// "0" records until interrupted.
	Duration string `json:"duration,omitempty"`

	// Output configures where the recording goes.
	Output Output `json:"output,omitempty"`
}

// Output is the destination section of a plan.
type Output struct {
	// Path is the .xrec dump file to write. Mutually exclusive with
	// Store.
	Path string `json:"path,omitempty"`

	// Store is the SQLite sample store to append the run to.
	Store string `json:"store,omitempty"`

	// Compression selects the dump payload compression: "zstd"
	// (default), "lz4", or "none". Ignored for store output.
	Compression string `json:"compression,omitempty"`

	// EncryptKey is the path of a 32-byte key file. When set, the
	// dump payload is encrypted. Ignored for store output.
	EncryptKey string `json:"encrypt_key,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals and validates the plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(strings.NewReader(string(stripped)))
	decoder.DisallowUnknownFields()

	var parsed Plan
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}

	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load reads a JSONC plan file from disk. A plan without an explicit
// name takes the file's base name, extension stripped.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if parsed.Name == "" {
		base := filepath.Base(path)
		parsed.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return parsed, nil
}

// Validate checks the plan's fields. Errors name the offending field.
func (p *Plan) Validate() error {
	if len(p.Knobs) == 0 {
		return fmt.Errorf("plan: knobs must name at least one configuration item")
	}
	seen := make(map[string]bool, len(p.Knobs))
	for _, knob := range p.Knobs {
		if knob == "" {
			return fmt.Errorf("plan: knobs contains an empty name")
		}
		if seen[knob] {
			return fmt.Errorf("plan: knob %q is listed twice", knob)
		}
		seen[knob] = true
	}

	if p.CPUs != "" {
		if _, err := affinity.ParseList(p.CPUs); err != nil {
			return fmt.Errorf("plan: cpus: %w", err)
		}
	}
	if _, err := p.ParsedInterval(); err != nil {
		return err
	}
	if _, err := p.ParsedDuration(); err != nil {
		return err
	}

	if p.Output.Path != "" && p.Output.Store != "" {
		return fmt.Errorf("plan: output.path and output.store are mutually exclusive")
	}
	switch p.Output.Compression {
	case "", "none", "zstd", "lz4":
	default:
		return fmt.Errorf("plan: output.compression %q is not one of none, zstd, lz4", p.Output.Compression)
	}
	return nil
}

// CPUMask returns the parsed CPU selection. ok is false when the plan
// leaves the selection to the device tree.
func (p *Plan) CPUMask() (mask affinity.Mask, ok bool, err error) {
	if p.CPUs == "" {
		return affinity.Mask{}, false, nil
	}
	mask, err = affinity.ParseList(p.CPUs)
	if err != nil {
		return affinity.Mask{}, false, fmt.Errorf("plan: cpus: %w", err)
	}
	return mask, true, nil
}

// ParsedInterval returns the sampling interval, or zero when the plan
// defers to the recorder default.
func (p *Plan) ParsedInterval() (time.Duration, error) {
	if p.Interval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(p.Interval)
	if err != nil {
		return 0, fmt.Errorf("plan: interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("plan: interval must be positive, got %v", interval)
	}
	return interval, nil
}

// ParsedDuration returns the recording duration; zero means record
// until interrupted.
func (p *Plan) ParsedDuration() (time.Duration, error) {
	if p.Duration == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(p.Duration)
	if err != nil {
		return 0, fmt.Errorf("plan: duration: %w", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("plan: duration must not be negative, got %v", duration)
	}
	return duration, nil
}
