// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. Fatal exists for
// the narrow window in main() before the structured logger is built,
// when an unrecoverable error has nowhere to go but stderr.
package process
