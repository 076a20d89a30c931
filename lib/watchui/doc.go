// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchui implements the live knob viewer TUI behind
// "xadapt watch".
//
// The viewer polls the configuration items of one CPU on a fixed
// interval and renders them as a scrollable table. Values that changed
// since the previous poll are highlighted briefly, which makes slow
// oscillations (turbo limits, uncore frequency) visible at a glance.
//
// Pressing / activates an fzf-style fuzzy filter over item names and
// descriptions; the table narrows and reorders by match score as the
// user types. The filter composes with navigation: j/k move within the
// filtered view.
//
// The model is a plain bubbletea state machine. Polling happens in
// [Model.Update] on a tick message, never in View, so the model can be
// driven synchronously in tests.
package watchui
