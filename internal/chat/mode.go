package chat

import (
	"strings"
	"time"
)

// ModeKind is the scope a question is answered against.
type ModeKind string

const (
	ModeDefault      ModeKind = "DEFAULT"
	ModeSelectedText ModeKind = "SELECTED_TEXT"
)

// PreviewLength is the number of runes of selected text shown in the mode
// indicator before it is truncated.
const PreviewLength = 60

// Mode is the active query scope. The selected text is non-empty exactly
// when the kind is ModeSelectedText; the constructors keep it that way.
type Mode struct {
	kind        ModeKind
	text        string
	lastUpdated time.Time
}

// DefaultMode returns a mode that searches the whole documentation.
func DefaultMode() Mode {
	return Mode{kind: ModeDefault, lastUpdated: time.Now()}
}

// SelectedTextMode returns a mode bound to text. Blank text yields the
// default mode.
func SelectedTextMode(text string) Mode {
	if strings.TrimSpace(text) == "" {
		return DefaultMode()
	}
	return Mode{kind: ModeSelectedText, text: text, lastUpdated: time.Now()}
}

// Kind returns the mode kind. The zero Mode reports ModeDefault.
func (m Mode) Kind() ModeKind {
	if m.kind == "" {
		return ModeDefault
	}
	return m.kind
}

// IsSelectedText reports whether questions are scoped to a selection.
func (m Mode) IsSelectedText() bool {
	return m.kind == ModeSelectedText && strings.TrimSpace(m.text) != ""
}

// SelectedText returns the bound text, empty in default mode.
func (m Mode) SelectedText() string {
	return m.text
}

// IsActive reports whether the mode holds a live selection.
func (m Mode) IsActive() bool {
	return m.IsSelectedText()
}

// LastUpdated returns when the mode was entered.
func (m Mode) LastUpdated() time.Time {
	return m.lastUpdated
}

// Label is the short name shown in the mode indicator.
func (m Mode) Label() string {
	if m.IsSelectedText() {
		return "Focus Mode"
	}
	return "Default Mode"
}

// Description explains what the mode answers from.
func (m Mode) Description() string {
	if m.IsSelectedText() {
		return "Responding based on selected text only"
	}
	return "Searching entire textbook for answers"
}

// Preview returns the selected text truncated for display.
func (m Mode) Preview() string {
	if !m.IsSelectedText() {
		return ""
	}
	return Truncate(m.text, PreviewLength)
}

// Truncate cuts s to n runes and appends "..." when it was longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
