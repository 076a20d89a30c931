// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/affinity"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/clock"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

// Sampler reads a fixed set of configuration items on one CPU at a
// fixed interval and appends the observed values to per-item
// timelines.
//
// A Sampler alternates between idle and running. Start spawns the
// sampling goroutine; Stop signals it and joins. Timelines persist
// across restarts, which is how the Registry grows a running
// sampler's item set: stop, then start again with the union.
type Sampler struct {
	cpu      int
	device   Device
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu        sync.Mutex
	items     []xadapt.Item
	timelines map[xadapt.Item]Timeline
	runErr    error
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewSampler creates an idle sampler for one CPU. The device is
// borrowed: the caller keeps ownership and closes it after the
// sampler's final Stop.
func NewSampler(cpu int, device Device, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Sampler {
	return &Sampler{
		cpu:       cpu,
		device:    device,
		interval:  interval,
		clock:     clk,
		logger:    logger,
		timelines: make(map[xadapt.Item]Timeline),
	}
}

// CPU returns the CPU this sampler reads from.
func (s *Sampler) CPU() int { return s.cpu }

// Running reports whether a sampling pass is active. A pass that
// aborted on a device error still counts as running until Stop is
// called; Err distinguishes the two.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Items returns the item set of the current (or most recent) pass.
func (s *Sampler) Items() []xadapt.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]xadapt.Item, len(s.items))
	copy(items, s.items)
	return items
}

// Err returns the error that aborted the current pass, or nil while
// sampling is healthy. The error is sticky until the next Start.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Start begins a sampling pass over the given items. Timelines of
// items carried over from earlier passes are preserved; items new to
// this sampler start empty. Returns an error if a pass is already
// active.
//
// The sampling goroutine locks its OS thread and pins it to the
// sampler's CPU, mirroring the single-CPU affinity mask of the thread
// that triggered activation.
func (s *Sampler) Start(items []xadapt.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("recorder: sampler for cpu %d is already running", s.cpu)
	}

	s.items = make([]xadapt.Item, len(items))
	copy(s.items, items)
	s.runErr = nil
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.items, s.stop, s.done)
	return nil
}

// Stop ends the sampling pass: signal the goroutine, then join it.
// No samples are appended after Stop returns. Stop is idempotent and
// a no-op on a sampler that was never started; concurrent Stops all
// block until the goroutine has exited.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		// Never started.
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	signal := s.running
	s.running = false
	s.mu.Unlock()

	if signal {
		close(stop)
	}
	<-done
}

// run is the sampling goroutine. It owns no state: items is the
// immutable snapshot for this pass, appends go through the mutex.
func (s *Sampler) run(items []xadapt.Item, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// The thread stays locked until the goroutine exits, at which
	// point the runtime discards it. Unlocking would return a thread
	// with a narrowed affinity mask to the scheduler pool.
	runtime.LockOSThread()

	if err := affinity.PinTo(s.cpu); err != nil {
		s.abort(fmt.Errorf("%w: %w", ErrAffinity, err))
		return
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.sampleOnce(items); err != nil {
				s.abort(err)
				return
			}
		}
	}
}

// sampleOnce reads every item once and appends the values under a
// single timestamp.
func (s *Sampler) sampleOnce(items []xadapt.Item) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		value, err := s.device.ReadValue(item)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDeviceRead, err)
		}
		s.timelines[item] = append(s.timelines[item], Sample{Time: now, Value: value})
	}
	return nil
}

// abort records the first fatal pass error. Sampling has stopped by
// the time abort is called; the error stays visible through Err until
// the next Start.
func (s *Sampler) abort(err error) {
	s.mu.Lock()
	if s.runErr == nil {
		s.runErr = err
	}
	s.mu.Unlock()
	s.logger.Error("sampling pass aborted", "cpu", s.cpu, "error", err)
}

// Drain streams one item's timeline to the sink in append order and
// clears it. Returns the number of samples written. A sink error
// aborts the drain; the samples not yet written remain in the
// timeline.
//
// Drain is meant to run after Stop. Draining a running sampler is
// safe but races with appends.
func (s *Sampler) Drain(item xadapt.Item, sink Sink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeline := s.timelines[item]
	written := 0
	for _, sample := range timeline {
		if err := sink.WriteSample(sample); err != nil {
			s.timelines[item] = append(Timeline(nil), timeline[written:]...)
			return written, fmt.Errorf("recorder: draining %s on cpu %d: %w", item.Name, s.cpu, err)
		}
		written++
	}
	s.timelines[item] = nil
	return written, nil
}
