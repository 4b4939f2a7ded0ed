// Package views provides TUI view components for the docchat reader.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/berth-dev/docchat/internal/docs"
	"github.com/berth-dev/docchat/internal/tui"
)

// ============================================================================
// Message Types
// ============================================================================

// SelectionGestureMsg is sent when the reader finishes a selection gesture.
type SelectionGestureMsg struct{}

// DocClickMsg is sent for a plain click on the document text.
type DocClickMsg struct{}

// ============================================================================
// DocModel
// ============================================================================

// docHeaderRows is the border plus title row above the first text line.
const docHeaderRows = 2

// DocModel shows one documentation page and lets the reader select lines
// with the keyboard or the mouse.
type DocModel struct {
	pages     []docs.Page
	page      int
	lines     []string
	highlight *Highlight
	cursor    int
	offset    int
	visual    bool
	dragging  bool
	dragged   bool
	pressLine int
	width     int
	height    int
	focused   bool
	err       error
}

// NewDocModel creates a DocModel over pages sharing hl as its live selection.
func NewDocModel(pages []docs.Page, hl *Highlight, width, height int) DocModel {
	m := DocModel{pages: pages, highlight: hl, focused: true}
	m.SetSize(width, height)
	return m
}

// SetSize resizes the pane (outer size, borders included) and re-renders.
func (m *DocModel) SetSize(width, height int) {
	if m.width == width && m.height == height && m.lines != nil {
		return
	}
	m.width, m.height = width, height
	m.render()
}

// SetFocused toggles keyboard focus.
func (m *DocModel) SetFocused(f bool) {
	m.focused = f
}

// ClearVisual leaves keyboard selection mode and drops the highlight.
func (m *DocModel) ClearVisual() {
	m.visual = false
	m.highlight.ClearSelection()
}

func (m *DocModel) render() {
	if len(m.pages) == 0 {
		m.lines = []string{}
		return
	}
	lines, err := docs.Lines(m.pages[m.page], m.textWidth())
	if err != nil {
		m.err = err
		lines = strings.Split(m.pages[m.page].Markdown, "\n")
	}
	m.lines = lines
	m.highlight.SetLines(lines)
	m.visual = false
	m.cursor = clamp(m.cursor, 0, max(len(lines)-1, 0))
	m.offset = clamp(m.offset, 0, max(len(lines)-1, 0))
}

func (m DocModel) textWidth() int {
	return max(m.width-4, 20)
}

func (m DocModel) visibleRows() int {
	return max(m.height-docHeaderRows-1, 1)
}

// Update handles messages for the document pane.
func (m DocModel) Update(msg tea.Msg) (DocModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m DocModel) handleKey(msg tea.KeyMsg) (DocModel, tea.Cmd) {
	keys := tui.DefaultKeyMap
	switch {
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.PageUp):
		m.moveCursor(-m.visibleRows())
	case key.Matches(msg, keys.PageDown):
		m.moveCursor(m.visibleRows())
	case key.Matches(msg, keys.PrevPage):
		m.turnPage(-1)
	case key.Matches(msg, keys.NextPage):
		m.turnPage(1)
	case key.Matches(msg, keys.Visual):
		m.visual = true
		m.highlight.Begin(m.cursor)
	case key.Matches(msg, keys.Select):
		if m.visual {
			m.visual = false
			return m, func() tea.Msg { return SelectionGestureMsg{} }
		}
	}
	return m, nil
}

func (m *DocModel) moveCursor(delta int) {
	if len(m.lines) == 0 {
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.lines)-1)
	if m.visual {
		m.highlight.Extend(m.cursor)
	}
	m.scrollTo(m.cursor)
}

func (m *DocModel) scrollTo(line int) {
	rows := m.visibleRows()
	if line < m.offset {
		m.offset = line
	}
	if line >= m.offset+rows {
		m.offset = line - rows + 1
	}
}

func (m *DocModel) turnPage(delta int) {
	next := clamp(m.page+delta, 0, len(m.pages)-1)
	if next == m.page {
		return
	}
	m.page = next
	m.cursor, m.offset = 0, 0
	m.render()
}

// lineAt maps a screen row to a document line.
func (m DocModel) lineAt(y int) int {
	return clamp(m.offset+y-docHeaderRows, 0, max(len(m.lines)-1, 0))
}

func (m DocModel) handleMouse(msg tea.MouseMsg) (DocModel, tea.Cmd) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.offset = max(m.offset-3, 0)
	case msg.Button == tea.MouseButtonWheelDown:
		m.offset = clamp(m.offset+3, 0, max(len(m.lines)-m.visibleRows(), 0))
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		line := m.lineAt(msg.Y)
		m.ClearVisual()
		m.dragging, m.dragged = true, false
		m.pressLine, m.cursor = line, line
	case msg.Action == tea.MouseActionMotion && m.dragging:
		line := m.lineAt(msg.Y)
		if !m.dragged && line != m.pressLine {
			m.dragged = true
			m.highlight.Begin(m.pressLine)
		}
		if m.dragged {
			m.highlight.Extend(line)
			m.cursor = line
		}
	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		gesture := func() tea.Msg { return SelectionGestureMsg{} }
		if m.dragged {
			return m, gesture
		}
		return m, tea.Sequence(gesture, func() tea.Msg { return DocClickMsg{} })
	}
	return m, nil
}

// View renders the document pane.
func (m DocModel) View() string {
	style := tui.PaneStyle
	if m.focused {
		style = tui.FocusedPaneStyle
	}
	inner := max(m.width-2, 10)

	var b strings.Builder
	title := "No documentation loaded"
	if len(m.pages) > 0 {
		title = fmt.Sprintf("%s  (%d/%d)", m.pages[m.page].Title, m.page+1, len(m.pages))
	}
	b.WriteString(tui.TitleStyle.Render(truncate(title, inner)))
	b.WriteString("\n")

	from, to, active := m.highlight.Span()
	rows := m.visibleRows()
	for i := m.offset; i < m.offset+rows; i++ {
		if i >= len(m.lines) {
			b.WriteString("\n")
			continue
		}
		line := lipgloss.NewStyle().Width(inner).MaxWidth(inner).Render(m.lines[i])
		switch {
		case active && i >= from && i <= to:
			line = tui.HighlightStyle.Render(line)
		case m.focused && i == m.cursor:
			line = tui.CursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(tui.ErrorStyle.Render(truncate(m.err.Error(), inner)))
	}

	return style.Width(inner).Height(m.height - 2).Render(strings.TrimRight(b.String(), "\n"))
}

// truncate cuts s to n terminal cells, keeping any styling intact.
func truncate(s string, n int) string {
	return ansi.Truncate(s, n, "…")
}
