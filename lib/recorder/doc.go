// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder samples x86_adapt configuration items from per-CPU
// background threads and accumulates per-item timelines.
//
// The Registry is the package surface and follows the lifecycle of a
// measurement-host metric source:
//
//	Declare(name)    resolve a metric name against the item catalog
//	Activate(name)   begin sampling the item on the caller's CPU
//	Harvest(h, sink) stop that CPU's sampling and drain the timeline
//
// Activate requires the calling thread to be pinned to exactly one
// CPU; the CPU in the caller's affinity mask decides which sampler the
// metric lands on. The first activation on a CPU lazily opens that
// CPU's device and starts a Sampler: a goroutine that locks its OS
// thread, pins it to the same CPU, and on every tick of the sampling
// interval reads every activated item and appends a timestamped value
// to the item's timeline.
//
// Harvest stops the CPU's sampler (signal, then join), streams the
// item's samples to the sink in append order, and clears the timeline;
// a second harvest of the same item yields only samples recorded after
// the first. A device read failure is fatal to the sampling pass: the
// loop stops at the failed tick, samples gathered before it survive,
// and the failure is returned by Harvest after the partial drain.
//
// All timestamps come from an injected clock.Clock, so tests drive
// sampling cadence deterministically with clock.Fake.
package recorder
