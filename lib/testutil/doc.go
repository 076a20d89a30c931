// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for recorder
// packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. They are the only place
// in the test suite where real wall-clock timeouts appear; everything
// cadence-related runs on clock.Fake.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies on the rest of the module.
package testutil
