// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
)

// walkCommands visits every command in the tree depth-first.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	path = append(path, command.Name)
	visit(command, path)
	for _, sub := range command.Subcommands {
		walkCommands(sub, path, visit)
	}
}

// TestCommandTreeShape validates the basic hygiene of the production
// command tree: every command is named and summarized, sibling names
// are unique, and leaves actually run something.
func TestCommandTreeShape(t *testing.T) {
	walkCommands(root(), nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if command.Name == "" {
			t.Errorf("%s: command without a name", name)
		}
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: subcommand without a summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor subcommands", name)
		}

		seen := make(map[string]bool)
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

// TestCommandFlagsConstruct exercises every Flags factory once;
// FlagsFromParams panics on malformed params structs, so this catches
// tag typos at test time instead of first use.
func TestCommandFlagsConstruct(t *testing.T) {
	walkCommands(root(), nil, func(command *cli.Command, path []string) {
		if command.Flags == nil {
			return
		}
		flagSet := command.Flags()
		if flagSet == nil {
			t.Errorf("%s: Flags() returned nil", strings.Join(path, " "))
		}
	})
}
