// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/junegunn/fzf/src/util"
)

// Row is one configuration item with its most recent value.
type Row struct {
	// Index is the item's slot in the device file.
	Index int

	// Name is the item's identifier from the definitions file.
	Name string

	// Description is the item's help text. May be empty.
	Description string

	// Writable reports whether the kernel accepts writes to the item.
	Writable bool

	// Value is the most recently polled value. Meaningless when Err
	// is set.
	Value uint64

	// Err is the device read failure for this item, if any.
	Err error

	// Changed is set when Value differs from the previous poll.
	Changed bool
}

// ReadFunc polls the current value of every item. Called once per
// tick from the update loop.
type ReadFunc func() ([]Row, error)

// TickMsg drives the poll loop. Exported so tests can step the model
// without a running program.
type TickMsg time.Time

// Model is the bubbletea model for the knob viewer.
type Model struct {
	read     ReadFunc
	interval time.Duration
	title    string

	keys   KeyMap
	theme  Theme
	filter FilterModel
	slab   *util.Slab

	rows     []Row
	previous map[string]uint64
	readErr  error
	paused   bool

	cursor int
	offset int
	width  int
	height int
}

// New creates a viewer polling read every interval. title names the
// watched target in the header (e.g. "cpu 3").
func New(read ReadFunc, interval time.Duration, title string) Model {
	return Model{
		read:     read,
		interval: interval,
		title:    title,
		keys:     DefaultKeyMap,
		theme:    DefaultTheme(),
		slab:     NewSlab(),
		previous: make(map[string]uint64),
		width:    80,
		height:   24,
	}
}

// Init implements tea.Model. Fires an immediate first poll.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return TickMsg(time.Now()) }
}

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil

	case TickMsg:
		if !m.paused {
			m.poll()
		}
		m.clampCursor()
		return m, m.nextTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// poll reads all rows and marks the ones whose value changed since
// the previous poll.
func (m *Model) poll() {
	rows, err := m.read()
	if err != nil {
		m.readErr = err
		return
	}
	m.readErr = nil

	for i := range rows {
		if rows[i].Err != nil {
			continue
		}
		previous, seen := m.previous[rows[i].Name]
		rows[i].Changed = seen && previous != rows[i].Value
		m.previous[rows[i].Name] = rows[i].Value
	}
	m.rows = rows
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filter.Active {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.filter.Clear()
		case "enter":
			m.filter.Active = false
		case "backspace":
			m.filter.HandleBackspace()
		default:
			if msg.Type == tea.KeyRunes {
				for _, r := range msg.Runes {
					m.filter.HandleRune(r)
				}
			}
		}
		m.cursor = 0
		m.offset = 0
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.FilterActivate):
		m.filter.Active = true
	case key.Matches(msg, m.keys.FilterClear):
		m.filter.Clear()
		m.cursor = 0
		m.offset = 0
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= m.tableHeight()
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += m.tableHeight()
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.visibleRows()) - 1
	}
	m.clampCursor()
	return m, nil
}

// visibleRows is the filtered view of the last poll.
func (m *Model) visibleRows() []Row {
	return m.filter.Apply(m.rows, m.slab)
}

// tableHeight is the number of data rows that fit on screen after
// header, column header, filter bar, and help line.
func (m *Model) tableHeight() int {
	chrome := 3
	if m.filter.Active || m.filter.Input != "" {
		chrome++
	}
	height := m.height - chrome
	if height < 1 {
		height = 1
	}
	return height
}

func (m *Model) clampCursor() {
	visible := len(m.visibleRows())
	if m.cursor >= visible {
		m.cursor = visible - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	height := m.tableHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var view strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
	header := fmt.Sprintf(" xadapt watch — %s — every %s", m.title, m.interval)
	if m.paused {
		header += " [paused]"
	}
	if m.readErr != nil {
		header += "  " + lipgloss.NewStyle().Foreground(m.theme.ReadError).
			Render(fmt.Sprintf("poll failed: %v", m.readErr))
	}
	view.WriteString(headerStyle.Render(header))
	view.WriteByte('\n')

	if bar := m.filter.View(m.theme, m.width); bar != "" {
		view.WriteString(bar)
		view.WriteByte('\n')
	}

	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	nameWidth := m.nameColumnWidth()
	view.WriteString(faint.Render(fmt.Sprintf(" %-*s  %20s  %-4s %s", nameWidth, "NAME", "VALUE", "MODE", "DESCRIPTION")))
	view.WriteByte('\n')

	visible := m.visibleRows()
	height := m.tableHeight()
	end := m.offset + height
	if end > len(visible) {
		end = len(visible)
	}
	for i := m.offset; i < end; i++ {
		view.WriteString(m.renderRow(visible[i], nameWidth, i == m.cursor))
		view.WriteByte('\n')
	}

	help := " j/k move  / filter  space pause  q quit"
	view.WriteString(lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(help))
	return view.String()
}

// nameColumnWidth sizes the name column to the longest visible name,
// bounded so pathological names don't push the value column off
// screen.
func (m Model) nameColumnWidth() int {
	width := 20
	for _, row := range m.rows {
		if w := ansi.StringWidth(row.Name); w > width {
			width = w
		}
	}
	if max := m.width / 2; width > max && max > 0 {
		width = max
	}
	return width
}

func (m Model) renderRow(row Row, nameWidth int, selected bool) string {
	mode := "ro"
	modeStyle := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	if row.Writable {
		mode = "rw"
		modeStyle = lipgloss.NewStyle().Foreground(m.theme.WritableMarker)
	}

	value := fmt.Sprintf("%20d", row.Value)
	valueStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	if row.Err != nil {
		value = fmt.Sprintf("%20s", "read error")
		valueStyle = lipgloss.NewStyle().Foreground(m.theme.ReadError)
	} else if row.Changed {
		valueStyle = lipgloss.NewStyle().Foreground(m.theme.ChangedValue).Bold(true)
	}

	name := ansi.Truncate(row.Name, nameWidth, "…")
	line := fmt.Sprintf(" %-*s  %s  %s %s",
		nameWidth, name,
		valueStyle.Render(value),
		modeStyle.Render(mode),
		row.Description)
	line = ansi.Truncate(line, m.width, "…")

	if selected {
		return lipgloss.NewStyle().
			Background(m.theme.SelectedBackground).
			Foreground(m.theme.SelectedForeground).
			Render(line)
	}
	return line
}

// Paused reports whether polling is frozen.
func (m Model) Paused() bool { return m.paused }

// Rows returns the last polled rows in catalog order.
func (m Model) Rows() []Row { return m.rows }
