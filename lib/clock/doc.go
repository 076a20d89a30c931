// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source for the recorder.
//
// Sampling cadence is the recorder's defining behavior, so nothing in
// lib/ reads the wall clock directly. Production code accepts a Clock
// and is handed Real(); tests are handed Fake(), which stands still
// until Advance is called and therefore makes sampler loops fully
// deterministic.
//
// # Wiring Pattern
//
// Add a Clock field to structs that keep time:
//
//	type Sampler struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	sampler.Start(items)       // loop registers its ticker
//	c.WaitForTimers(1)         // block until the ticker is pending
//	c.Advance(50 * time.Millisecond) // fire exactly one tick
//
// WaitForTimers eliminates the race between a goroutine registering
// its ticker and the test advancing the clock, which is what makes
// assertions about individual ticks possible.
package clock
