package views

import (
	"strings"
	"sync"

	"github.com/berth-dev/docchat/internal/selection"
)

// Highlight is the live selection in the document pane. It is shared by
// value copies of DocModel and may be cleared from a command goroutine,
// so it carries its own lock.
type Highlight struct {
	mu     sync.Mutex
	lines  []string
	anchor int
	cursor int
	active bool
}

// NewHighlight returns an empty highlight.
func NewHighlight() *Highlight {
	return &Highlight{}
}

// SetLines replaces the document text and drops any highlight.
func (h *Highlight) SetLines(lines []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = lines
	h.active = false
}

// Begin starts a highlight at line.
func (h *Highlight) Begin(line int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.anchor, h.cursor, h.active = line, line, true
}

// Extend moves the free end of an active highlight.
func (h *Highlight) Extend(line int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		h.cursor = line
	}
}

// Span returns the highlighted line range, inclusive.
func (h *Highlight) Span() (from, to int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return 0, 0, false
	}
	from, to = h.anchor, h.cursor
	if from > to {
		from, to = to, from
	}
	return from, to, true
}

// Selection implements selection.Document. Wrapped lines are joined with
// single spaces and the rendering margin is dropped.
func (h *Highlight) Selection() (selection.Range, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active || len(h.lines) == 0 {
		return selection.Range{}, false
	}
	from, to := h.anchor, h.cursor
	if from > to {
		from, to = to, from
	}
	from = clamp(from, 0, len(h.lines)-1)
	to = clamp(to, 0, len(h.lines)-1)

	start := 0
	for _, l := range h.lines[:from] {
		start += len(l) + 1
	}
	var parts []string
	end := start
	for _, l := range h.lines[from : to+1] {
		end += len(l) + 1
		if t := strings.TrimSpace(l); t != "" {
			parts = append(parts, t)
		}
	}
	return selection.Range{Text: strings.Join(parts, " "), Start: start, End: end - 1}, true
}

// ClearSelection implements selection.Document.
func (h *Highlight) ClearSelection() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
