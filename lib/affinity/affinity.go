// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package affinity wraps the Linux sched_getaffinity and
// sched_setaffinity syscalls for the recorder's thread-pinning needs.
//
// Every function in this package acts on the calling OS thread
// (pid 0 in syscall terms). Callers that depend on thread identity
// must hold runtime.LockOSThread for as long as the pinning matters;
// without it the Go scheduler is free to move the goroutine to a
// thread with a different mask.
package affinity

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Mask is a set of CPU indices. The zero value is the empty set.
type Mask struct {
	set unix.CPUSet
}

// Set adds a CPU to the mask.
func (m *Mask) Set(cpu int) { m.set.Set(cpu) }

// IsSet reports whether the mask contains the CPU.
func (m *Mask) IsSet(cpu int) bool { return m.set.IsSet(cpu) }

// Count returns the number of CPUs in the mask.
func (m *Mask) Count() int { return m.set.Count() }

// CPUs returns the CPU indices in the mask in ascending order.
func (m *Mask) CPUs() []int {
	var cpus []int
	for cpu := 0; cpu < len(m.set)*64; cpu++ {
		if m.set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

// String renders the mask in kernel cpu-list syntax: ascending,
// comma-separated, with runs collapsed to ranges ("0-3,8"). The empty
// mask renders as the empty string.
func (m *Mask) String() string {
	cpus := m.CPUs()
	if len(cpus) == 0 {
		return ""
	}

	var parts []string
	runStart := cpus[0]
	previous := cpus[0]
	flush := func(last int) {
		if runStart == last {
			parts = append(parts, strconv.Itoa(runStart))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", runStart, last))
		}
	}
	for _, cpu := range cpus[1:] {
		if cpu != previous+1 {
			flush(previous)
			runStart = cpu
		}
		previous = cpu
	}
	flush(previous)
	return strings.Join(parts, ",")
}

// ParseList parses kernel cpu-list syntax ("0", "0-3", "0-3,8") into
// a Mask. Duplicate and overlapping entries are allowed and collapse.
func ParseList(list string) (Mask, error) {
	var mask Mask
	trimmed := strings.TrimSpace(list)
	if trimmed == "" {
		return mask, fmt.Errorf("affinity: empty cpu list")
	}
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		low, high, found := strings.Cut(part, "-")
		first, err := strconv.Atoi(low)
		if err != nil || first < 0 {
			return Mask{}, fmt.Errorf("affinity: invalid cpu %q in list %q", part, list)
		}
		last := first
		if found {
			last, err = strconv.Atoi(high)
			if err != nil || last < first {
				return Mask{}, fmt.Errorf("affinity: invalid cpu range %q in list %q", part, list)
			}
		}
		for cpu := first; cpu <= last; cpu++ {
			mask.Set(cpu)
		}
	}
	return mask, nil
}

// Of builds a Mask from explicit CPU indices.
func Of(cpus ...int) Mask {
	var mask Mask
	for _, cpu := range cpus {
		mask.Set(cpu)
	}
	return mask
}

// Current returns the affinity mask of the calling thread.
func Current() (Mask, error) {
	var mask Mask
	if err := unix.SchedGetaffinity(0, &mask.set); err != nil {
		return Mask{}, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	return mask, nil
}

// Apply sets the affinity mask of the calling thread.
func Apply(mask Mask) error {
	if mask.Count() == 0 {
		return fmt.Errorf("affinity: refusing to apply empty mask")
	}
	if err := unix.SchedSetaffinity(0, &mask.set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity to %s: %w", mask.String(), err)
	}
	return nil
}

// PinTo restricts the calling thread to a single CPU.
func PinTo(cpu int) error {
	return Apply(Of(cpu))
}

// Pinned reports whether the calling thread is pinned to exactly one
// CPU, and which. ok is false when the mask spans more than one CPU.
func Pinned() (cpu int, ok bool, err error) {
	mask, err := Current()
	if err != nil {
		return 0, false, err
	}
	if mask.Count() != 1 {
		return 0, false, nil
	}
	return mask.CPUs()[0], true, nil
}
