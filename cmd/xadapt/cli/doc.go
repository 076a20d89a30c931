// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the xadapt tool.
//
// The central type is [Command]: a named subcommand with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// The tree is assembled in cmd/xadapt/main.go and dispatched through
// [Command.Execute], which handles flag parsing, subcommand routing, and
// help output with examples.
//
// Unknown subcommands and flags get a "did you mean" suggestion based on
// Levenshtein edit distance (threshold: distance <= 3), implemented in
// suggest.go.
//
// [BindFlags] and [FlagsFromParams] bind a command's flags to a tagged
// params struct, so each subcommand declares its surface once:
//
//	var params recordParams
//	command := &cli.Command{
//	    Name: "record",
//	    Flags: func() *pflag.FlagSet {
//	        return cli.FlagsFromParams("record", &params)
//	    },
//	    Run: func(args []string) error { ... },
//	}
package cli
