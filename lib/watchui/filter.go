// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"
)

// FilterModel holds the fuzzy filter state. The filter matches item
// names and descriptions; the table reorders by match score while a
// filter is active.
type FilterModel struct {
	// Input is the current filter query text.
	Input string

	// Active is true when the filter input has keyboard focus
	// (the user pressed / to start typing).
	Active bool
}

// Apply returns the rows matching the current filter, best score
// first. An empty filter returns rows unchanged. Ties keep the
// catalog order, so stable values don't jump around between polls.
func (filter *FilterModel) Apply(rows []Row, slab *util.Slab) []Row {
	if filter.Input == "" {
		return rows
	}

	pattern := []rune(strings.ToLower(filter.Input))

	type scored struct {
		row   Row
		score int
	}
	var matches []scored
	for _, row := range rows {
		score, ok := fuzzyMatch(row.Name, pattern, slab)
		if descScore, descOK := fuzzyMatch(row.Description, pattern, slab); descOK {
			if !ok || descScore > score {
				score = descScore
			}
			ok = true
		}
		if ok {
			matches = append(matches, scored{row: row, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	result := make([]Row, len(matches))
	for i, match := range matches {
		result[i] = match.row
	}
	return result
}

// HandleRune processes a character typed while the filter is active.
func (filter *FilterModel) HandleRune(character rune) {
	filter.Input += string(character)
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *FilterModel) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *FilterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}

// View renders the filter bar. When active, shows the input with a
// cursor. When inactive with text, shows the filter as a subtle
// indicator. Hidden entirely when empty and inactive.
func (filter *FilterModel) View(theme Theme, width int) string {
	if !filter.Active && filter.Input == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(theme.NormalText).
		Width(width)

	if filter.Active {
		cursor := lipgloss.NewStyle().
			Foreground(theme.FilterForeground).
			Bold(true).
			Render("▎")
		return style.Render(" / " + filter.Input + cursor)
	}

	dimStyle := lipgloss.NewStyle().
		Foreground(theme.FaintText).
		Width(width)
	return dimStyle.Render(" filter: " + filter.Input)
}
