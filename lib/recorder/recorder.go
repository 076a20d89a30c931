// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"errors"
	"time"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

// DefaultInterval is the sampling interval used when Config.Interval
// is zero. Hardware knobs change rarely; 50 ms keeps timelines small
// while still catching transitions.
const DefaultInterval = 50 * time.Millisecond

// Error taxonomy. Callers branch with errors.Is; every error returned
// by the package wraps one of these or carries plain context.
var (
	// ErrUnknownMetric reports a metric name the item catalog does not
	// declare, or an Activate of a name that was never declared.
	ErrUnknownMetric = errors.New("recorder: unknown metric")

	// ErrNotPinned reports an Activate from a thread whose affinity
	// mask does not contain exactly one CPU.
	ErrNotPinned = errors.New("recorder: calling thread is not pinned to a single CPU")

	// ErrDeviceOpen reports a per-CPU device that could not be opened
	// during Activate.
	ErrDeviceOpen = errors.New("recorder: cannot open per-CPU device")

	// ErrAffinity reports a sampler thread that could not apply its
	// CPU mask. Fatal to the sampling pass; surfaced by Harvest.
	ErrAffinity = errors.New("recorder: sampler thread could not pin to its CPU")

	// ErrDeviceRead reports a device read failure during sampling.
	// Fatal to the sampling pass; surfaced by Harvest after the
	// partial drain.
	ErrDeviceRead = errors.New("recorder: device read failed during sampling")

	// ErrUnknownHandle reports a Harvest of a handle the Registry
	// never issued.
	ErrUnknownHandle = errors.New("recorder: unknown metric handle")
)

// Sample is one observation of a configuration item.
type Sample struct {
	// Time is the clock reading at the tick that produced the sample.
	// All items sampled on the same tick share one Time.
	Time time.Time

	// Value is the item's raw 8-byte register value.
	Value uint64
}

// Timeline is the ordered samples of one item on one CPU. Sample
// times are non-decreasing.
type Timeline []Sample

// Handle identifies one activated (CPU, item) pair. Handles are dense
// integers assigned in activation order, starting at zero.
type Handle int

// Sink consumes drained samples in timeline order. Implementations
// include dump series writers and sample store batches.
type Sink interface {
	WriteSample(Sample) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Sample) error

// WriteSample calls f(sample).
func (f SinkFunc) WriteSample(sample Sample) error { return f(sample) }

// Device is the per-CPU value source the sampler reads from. It is
// satisfied by *xadapt.Device; tests substitute deterministic fakes.
type Device interface {
	ReadValue(item xadapt.Item) (uint64, error)
	Close() error
}

// DeviceOpener opens the value source for one CPU. The Registry calls
// it once per CPU, on first activation.
type DeviceOpener func(cpu int) (Device, error)
