// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// step sends a message and returns the updated Model.
func step(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	updated, _ := model.Update(message)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want watchui.Model", updated)
	}
	return next
}

func keyPress(key string) tea.KeyMsg {
	if len(key) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	panic("unhandled key: " + key)
}

func TestModel_PollMarksChangedValues(t *testing.T) {
	value := uint64(100)
	read := func() ([]Row, error) {
		return []Row{{Name: "Intel_Target_PState", Value: value}}, nil
	}

	model := New(read, 50*time.Millisecond, "cpu 0")
	model = step(t, model, TickMsg(time.Now()))

	rows := model.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Changed {
		t.Error("first poll marked value as changed")
	}

	// Same value: not changed.
	model = step(t, model, TickMsg(time.Now()))
	if model.Rows()[0].Changed {
		t.Error("unchanged value marked as changed")
	}

	// New value: changed.
	value = 200
	model = step(t, model, TickMsg(time.Now()))
	if !model.Rows()[0].Changed {
		t.Error("changed value not marked")
	}
}

func TestModel_PauseStopsPolling(t *testing.T) {
	polls := 0
	read := func() ([]Row, error) {
		polls++
		return nil, nil
	}

	model := New(read, 50*time.Millisecond, "cpu 0")
	model = step(t, model, TickMsg(time.Now()))
	if polls != 1 {
		t.Fatalf("polls = %d, want 1", polls)
	}

	model = step(t, model, keyPress(" "))
	if !model.Paused() {
		t.Fatal("space did not pause")
	}
	model = step(t, model, TickMsg(time.Now()))
	if polls != 1 {
		t.Errorf("polls = %d while paused, want still 1", polls)
	}

	model = step(t, model, keyPress(" "))
	model = step(t, model, TickMsg(time.Now()))
	if polls != 2 {
		t.Errorf("polls = %d after unpause, want 2", polls)
	}
}

func TestModel_PollErrorShownInHeader(t *testing.T) {
	read := func() ([]Row, error) {
		return nil, errors.New("device vanished")
	}

	model := New(read, 50*time.Millisecond, "cpu 0")
	model = step(t, model, TickMsg(time.Now()))

	if !strings.Contains(model.View(), "device vanished") {
		t.Error("view does not surface the poll error")
	}
}

func TestModel_FilterNarrowsView(t *testing.T) {
	read := func() ([]Row, error) {
		return []Row{
			{Name: "Intel_Target_PState", Value: 16},
			{Name: "Intel_Uncore_Frequency", Value: 24},
		}, nil
	}

	model := New(read, 50*time.Millisecond, "cpu 0")
	model = step(t, model, tea.WindowSizeMsg{Width: 120, Height: 30})
	model = step(t, model, TickMsg(time.Now()))

	model = step(t, model, keyPress("/"))
	for _, r := range "uncore" {
		model = step(t, model, keyPress(string(r)))
	}

	view := model.View()
	if !strings.Contains(view, "Intel_Uncore_Frequency") {
		t.Error("filtered view lost the matching row")
	}
	if strings.Contains(view, "Intel_Target_PState") {
		t.Error("filtered view still shows the non-matching row")
	}

	// Esc clears the filter and restores the full table.
	model = step(t, model, keyPress("esc"))
	if !strings.Contains(model.View(), "Intel_Target_PState") {
		t.Error("clearing the filter did not restore the full table")
	}
}

func TestModel_FilterActivateDoesNotQuit(t *testing.T) {
	model := New(func() ([]Row, error) { return nil, nil }, time.Second, "cpu 0")
	model = step(t, model, keyPress("/"))

	// "q" while the filter is active is input, not quit.
	updated, cmd := model.Update(keyPress("q"))
	model = updated.(Model)
	if cmd != nil {
		t.Error("typing q into the filter produced a command")
	}
	if model.filter.Input != "q" {
		t.Errorf("filter input = %q, want q", model.filter.Input)
	}
}

func TestModel_QuitKey(t *testing.T) {
	model := New(func() ([]Row, error) { return nil, nil }, time.Second, "cpu 0")
	_, cmd := model.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("q command produced no message")
	} else if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("q produced %T, want tea.QuitMsg", msg)
	}
}

func TestModel_CursorClampsToFilteredRows(t *testing.T) {
	read := func() ([]Row, error) {
		return []Row{
			{Name: "Intel_Target_PState"},
			{Name: "Intel_Uncore_Frequency"},
			{Name: "Intel_Clock_Mod"},
		}, nil
	}

	model := New(read, time.Second, "cpu 0")
	model = step(t, model, tea.WindowSizeMsg{Width: 100, Height: 20})
	model = step(t, model, TickMsg(time.Now()))

	model = step(t, model, keyPress("G"))
	if model.cursor != 2 {
		t.Fatalf("cursor = %d after G, want 2", model.cursor)
	}

	// Narrowing the view pulls the cursor back in range.
	model = step(t, model, keyPress("/"))
	for _, r := range "uncore" {
		model = step(t, model, keyPress(string(r)))
	}
	model = step(t, model, keyPress("enter"))
	model = step(t, model, keyPress("j"))
	if model.cursor != 0 {
		t.Errorf("cursor = %d with one filtered row, want 0", model.cursor)
	}
}
