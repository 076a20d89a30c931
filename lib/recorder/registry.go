// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/affinity"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/clock"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

// Config configures a Registry. Catalog is required; everything else
// has a production default.
type Config struct {
	// Catalog resolves metric names to configuration items.
	Catalog *xadapt.Catalog

	// Root is the x86_adapt device tree root used by the default
	// device opener. Defaults to xadapt.DefaultRoot. Ignored when
	// OpenDevice is set.
	Root string

	// OpenDevice opens the value source for a CPU. Defaults to
	// opening <Root>/cpu/<N>. Tests substitute fakes here.
	OpenDevice DeviceOpener

	// Interval is the sampling period. Defaults to DefaultInterval.
	Interval time.Duration

	// Clock is the time source. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives sampler lifecycle events. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Registry coordinates per-CPU samplers behind the
// declare/activate/harvest lifecycle. It is safe for concurrent use;
// a single mutex guards the declared-metric map, the sampler table,
// and the handle table.
type Registry struct {
	catalog  *xadapt.Catalog
	open     DeviceOpener
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	declared map[string]xadapt.Item
	samplers map[int]*Sampler
	devices  map[int]Device
	handles  []handleBinding
	closed   bool
}

// handleBinding is what a dense Handle points at.
type handleBinding struct {
	cpu  int
	item xadapt.Item
}

// New validates the configuration and returns an empty Registry. No
// devices are opened until the first Activate.
func New(config Config) (*Registry, error) {
	if config.Catalog == nil {
		return nil, fmt.Errorf("recorder: Config.Catalog is required")
	}
	if config.Interval < 0 {
		return nil, fmt.Errorf("recorder: negative sampling interval %v", config.Interval)
	}

	registry := &Registry{
		catalog:  config.Catalog,
		open:     config.OpenDevice,
		interval: config.Interval,
		clock:    config.Clock,
		logger:   config.Logger,
		declared: make(map[string]xadapt.Item),
		samplers: make(map[int]*Sampler),
		devices:  make(map[int]Device),
	}
	if registry.open == nil {
		root := config.Root
		if root == "" {
			root = xadapt.DefaultRoot
		}
		registry.open = func(cpu int) (Device, error) {
			return xadapt.OpenCPU(root, cpu)
		}
	}
	if registry.interval == 0 {
		registry.interval = DefaultInterval
	}
	if registry.clock == nil {
		registry.clock = clock.Real()
	}
	if registry.logger == nil {
		registry.logger = slog.Default()
	}
	return registry, nil
}

// Declare resolves a metric name against the catalog and remembers
// it. Declaring the same name again returns the same item. Unknown
// names return ErrUnknownMetric.
func (r *Registry) Declare(name string) (xadapt.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.declared[name]; ok {
		return item, nil
	}
	item, err := r.catalog.Lookup(name)
	if err != nil {
		return xadapt.Item{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	r.declared[name] = item
	r.logger.Debug("declared metric", "metric", name, "slot", item.Index)
	return item, nil
}

// Activate begins sampling a declared metric on the calling thread's
// CPU and returns a dense handle for the (CPU, item) pair.
//
// The calling thread must be pinned to exactly one CPU; that CPU
// receives the sampler. The first activation on a CPU opens its
// device and starts its sampler. Activating an item that is new to an
// already-running sampler restarts the sampler with the union of its
// items; existing timelines survive the restart. Repeat activations
// of the same (CPU, item) pair return fresh handles onto the same
// timeline.
func (r *Registry) Activate(name string) (Handle, error) {
	cpu, pinned, err := affinity.Pinned()
	if err != nil {
		return 0, fmt.Errorf("recorder: checking caller affinity: %w", err)
	}
	if !pinned {
		return 0, ErrNotPinned
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, fmt.Errorf("recorder: registry is closed")
	}

	item, ok := r.declared[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q was never declared", ErrUnknownMetric, name)
	}

	sampler, ok := r.samplers[cpu]
	if !ok {
		device, err := r.open(cpu)
		if err != nil {
			return 0, fmt.Errorf("%w: cpu %d: %w", ErrDeviceOpen, cpu, err)
		}
		sampler = NewSampler(cpu, device, r.interval, r.clock, r.logger)
		r.samplers[cpu] = sampler
		r.devices[cpu] = device
		r.logger.Info("sampler created", "cpu", cpu, "interval", r.interval)
	}

	monitored := sampler.Items()
	alreadyMonitored := false
	for _, existing := range monitored {
		if existing == item {
			alreadyMonitored = true
			break
		}
	}
	if !alreadyMonitored || !sampler.Running() {
		sampler.Stop()
		if !alreadyMonitored {
			monitored = append(monitored, item)
		}
		if err := sampler.Start(monitored); err != nil {
			return 0, fmt.Errorf("recorder: restarting sampler for cpu %d: %w", cpu, err)
		}
	}

	handle := Handle(len(r.handles))
	r.handles = append(r.handles, handleBinding{cpu: cpu, item: item})
	r.logger.Debug("activated metric",
		"metric", name,
		"cpu", cpu,
		"handle", int(handle),
		"monitored_items", len(monitored))
	return handle, nil
}

// Harvest stops the handle's sampler, streams the item's timeline to
// the sink in append order, and clears it. Stopping is idempotent
// across the handles of one CPU: the first harvest joins the sampling
// goroutine, later ones drain immediately.
//
// If the sampling pass aborted (affinity or device read failure), the
// failure is returned after the partial timeline has been delivered
// to the sink. Sink errors abort the drain and leave the undelivered
// samples in place.
func (r *Registry) Harvest(handle Handle, sink Sink) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("recorder: registry is closed")
	}
	if int(handle) < 0 || int(handle) >= len(r.handles) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	binding := r.handles[handle]
	sampler := r.samplers[binding.cpu]
	r.mu.Unlock()

	// Join outside the registry lock: other CPUs' activations should
	// not wait on this CPU's final tick.
	sampler.Stop()

	written, err := sampler.Drain(binding.item, sink)
	if err != nil {
		return err
	}
	r.logger.Debug("harvested metric",
		"metric", binding.item.Name,
		"cpu", binding.cpu,
		"samples", written)

	if runErr := sampler.Err(); runErr != nil {
		return fmt.Errorf("recorder: sampling pass on cpu %d: %w", binding.cpu, runErr)
	}
	return nil
}

// Declared returns the names declared so far, in no particular order.
func (r *Registry) Declared() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.declared))
	for name := range r.declared {
		names = append(names, name)
	}
	return names
}

// Close stops every sampler and closes every device. The Registry
// rejects Activate and Harvest afterwards. Idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	samplers := make([]*Sampler, 0, len(r.samplers))
	for _, sampler := range r.samplers {
		samplers = append(samplers, sampler)
	}
	devices := r.devices
	r.mu.Unlock()

	for _, sampler := range samplers {
		sampler.Stop()
	}
	var errs []error
	for cpu, device := range devices {
		if err := device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recorder: closing cpu %d device: %w", cpu, err))
		}
	}
	return errors.Join(errs...)
}
