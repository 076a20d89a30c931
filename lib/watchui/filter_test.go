// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"strings"
	"testing"
)

func testRows() []Row {
	return []Row{
		{Index: 0, Name: "Intel_Target_PState", Description: "requested performance state"},
		{Index: 1, Name: "Intel_Uncore_Frequency", Description: "current uncore clock"},
		{Index: 2, Name: "Intel_Clock_Mod", Description: "clock modulation duty cycle"},
		{Index: 3, Name: "AMD_Boost_State", Description: "core boost enable"},
	}
}

func TestFuzzyMatch(t *testing.T) {
	slab := NewSlab()

	tests := []struct {
		text    string
		pattern string
		want    bool
	}{
		{"Intel_Target_PState", "pstate", true},
		{"Intel_Target_PState", "itp", true},
		{"Intel_Target_PState", "uncore", false},
		{"Intel_Uncore_Frequency", "unfreq", true},
		{"anything", "", true},
	}

	for _, test := range tests {
		pattern := []rune(strings.ToLower(test.pattern))
		if _, matched := fuzzyMatch(test.text, pattern, slab); matched != test.want {
			t.Errorf("fuzzyMatch(%q, %q) matched = %v, want %v",
				test.text, test.pattern, matched, test.want)
		}
	}
}

func TestFilterApply_EmptyPassesThrough(t *testing.T) {
	var filter FilterModel
	rows := testRows()

	got := filter.Apply(rows, NewSlab())
	if len(got) != len(rows) {
		t.Fatalf("empty filter returned %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i].Name != rows[i].Name {
			t.Errorf("row %d = %q, want %q (order must be preserved)", i, got[i].Name, rows[i].Name)
		}
	}
}

func TestFilterApply_Narrows(t *testing.T) {
	filter := FilterModel{Input: "uncore"}

	got := filter.Apply(testRows(), NewSlab())
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1: %v", len(got), got)
	}
	if got[0].Name != "Intel_Uncore_Frequency" {
		t.Errorf("matched %q, want Intel_Uncore_Frequency", got[0].Name)
	}
}

func TestFilterApply_MatchesDescription(t *testing.T) {
	filter := FilterModel{Input: "duty cycle"}

	got := filter.Apply(testRows(), NewSlab())
	if len(got) != 1 || got[0].Name != "Intel_Clock_Mod" {
		t.Fatalf("got %v, want only Intel_Clock_Mod", got)
	}
}

func TestFilterApply_RanksByScore(t *testing.T) {
	rows := []Row{
		{Name: "AMD_Boost_State", Description: ""},
		{Name: "Intel_Target_PState", Description: ""},
	}
	// "pstate" matches Intel_Target_PState on a word boundary run and
	// AMD_Boost_State only as scattered characters; the contiguous
	// match must rank first despite coming later in catalog order.
	filter := FilterModel{Input: "pstate"}

	got := filter.Apply(rows, NewSlab())
	if len(got) == 0 {
		t.Fatal("no rows matched")
	}
	if got[0].Name != "Intel_Target_PState" {
		t.Errorf("best match = %q, want Intel_Target_PState", got[0].Name)
	}
}

func TestFilterEditing(t *testing.T) {
	var filter FilterModel
	filter.Active = true

	for _, r := range "psta" {
		filter.HandleRune(r)
	}
	if filter.Input != "psta" {
		t.Errorf("Input = %q, want psta", filter.Input)
	}

	if !filter.HandleBackspace() {
		t.Error("HandleBackspace returned false with text present")
	}
	if filter.Input != "pst" {
		t.Errorf("Input after backspace = %q, want pst", filter.Input)
	}

	filter.Clear()
	if filter.Input != "" || filter.Active {
		t.Errorf("Clear left state %+v", filter)
	}
	if filter.HandleBackspace() {
		t.Error("HandleBackspace returned true on empty input")
	}
}

func TestFilterView(t *testing.T) {
	var filter FilterModel
	theme := Theme{}

	if view := filter.View(theme, 40); view != "" {
		t.Errorf("inactive empty filter renders %q, want hidden", view)
	}

	filter.Active = true
	filter.Input = "pstate"
	if view := filter.View(theme, 40); !strings.Contains(view, "pstate") {
		t.Errorf("active filter view %q lacks input text", view)
	}

	filter.Active = false
	if view := filter.View(theme, 40); !strings.Contains(view, "filter: pstate") {
		t.Errorf("inactive filter view %q lacks indicator", view)
	}
}
