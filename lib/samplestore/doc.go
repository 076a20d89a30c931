// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package samplestore persists recording runs in SQLite.
//
// The schema has three tables: runs (one row per recording session),
// series (one row per recorded (CPU, knob) timeline), and samples
// (the timeline points, covered by an index on series and time). A
// run is begun before sampling starts, its series are appended as
// timelines are harvested, and the run is finished when the session
// ends; a crash leaves a recognizable unfinished run rather than a
// half-attributed pile of samples.
//
// The store wraps a small connection pool with WAL journaling so the
// `xadapt runs` query commands can read while a recording writes.
package samplestore
