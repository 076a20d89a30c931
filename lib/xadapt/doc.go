// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package xadapt reads and writes CPU configuration items exposed by
// the x86_adapt kernel module.
//
// The kernel module presents a small device tree, by default under
// /dev/x86_adapt:
//
//	definitions    text catalog of configuration items
//	cpu/<N>        seekable per-CPU device file
//
// The definitions file has one item per line, tab-separated:
//
//	NAME<TAB>ro|rw<TAB>DESCRIPTION
//
// with '#' comment lines and blank lines ignored. An item's index is
// its position among definition lines, counting from zero. In a
// cpu/<N> device, the value of item i occupies 8 bytes, little-endian,
// at byte offset 8*i. Writable ("rw") items accept 8-byte writes at
// the same offset.
//
// All constructors take the device tree root explicitly, so tests run
// against a fabricated directory of regular files; regular files
// support the same positioned reads and writes the device nodes do.
package xadapt
