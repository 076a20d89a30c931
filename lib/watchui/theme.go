// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for the knob viewer. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Value highlighting.
	ChangedValue lipgloss.Color // Value differs from the previous poll.
	ReadError    lipgloss.Color // Device read failed for this item.

	// Item attributes.
	WritableMarker lipgloss.Color // The "rw" column for writable items.

	// UI chrome.
	HeaderForeground lipgloss.Color
	FilterForeground lipgloss.Color
	HelpText         lipgloss.Color
}

// DefaultTheme returns the standard palette, degraded to unstyled
// monochrome when the terminal reports no color support.
func DefaultTheme() Theme {
	if termenv.ColorProfile() == termenv.Ascii {
		return Theme{}
	}
	return Theme{
		NormalText:         lipgloss.Color("252"),
		FaintText:          lipgloss.Color("243"),
		SelectedBackground: lipgloss.Color("237"),
		SelectedForeground: lipgloss.Color("255"),
		ChangedValue:       lipgloss.Color("214"),
		ReadError:          lipgloss.Color("196"),
		WritableMarker:     lipgloss.Color("114"),
		HeaderForeground:   lipgloss.Color("39"),
		FilterForeground:   lipgloss.Color("220"),
		HelpText:           lipgloss.Color("243"),
	}
}
