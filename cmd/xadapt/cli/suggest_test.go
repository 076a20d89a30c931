// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"record", "", 6},
		{"", "watch", 5},
		{"record", "record", 0},
		{"recrod", "record", 2},
		{"wach", "watch", 1},
		{"lst", "list", 1},
		{"version", "record", 6},
	}

	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "list"},
		{Name: "record"},
		{Name: "watch"},
		{Name: "runs"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"recrod", "record"},
		{"lis", "list"},
		{"wacth", "watch"},
		{"run", "runs"},
		{"completely-different", ""},
	}

	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("record", pflag.ContinueOnError)
		flagSet.String("interval", "50ms", "")
		flagSet.String("cpus", "", "")
		flagSet.StringP("out", "o", "", "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo long flag", []string{"--intreval", "10ms"}, "--interval"},
		{"typo with equals", []string{"--cpsu=0-3"}, "--cpus"},
		{"known flag skipped", []string{"--interval", "10ms", "--cpsu", "0"}, "--cpus"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"no flags in args", []string{"positional"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, newFlags()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
