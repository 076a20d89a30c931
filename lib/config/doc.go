// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the xadapt
// tool.
//
// Configuration is loaded from a single file (the --config flag, or
// [DefaultPath] when unset). There is no environment variable
// override and no file search beyond that: the file is the single
// source of truth, layered over the built-in defaults. Unknown fields
// are rejected so typos fail loudly.
package config
