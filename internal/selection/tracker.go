// Package selection tracks which passage of the documentation the reader
// has highlighted and derives the query mode from it.
package selection

import (
	"strings"
	"sync"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/log"
)

// Range is a live selection in the document.
type Range struct {
	Text  string
	Start int
	End   int
}

// Document is the surface selections are made on.
type Document interface {
	// Selection returns the live selection, if any.
	Selection() (Range, bool)
	// ClearSelection removes the live selection.
	ClearSelection()
}

// TargetKind is what a click landed on.
type TargetKind int

const (
	TargetBody TargetKind = iota
	TargetContent
	TargetChatWidget
	TargetChatInput
	TargetChatButton
	TargetModeIndicator
)

// InChat reports whether the target belongs to the chat widget.
func (k TargetKind) InChat() bool {
	switch k {
	case TargetChatWidget, TargetChatInput, TargetChatButton, TargetModeIndicator:
		return true
	}
	return false
}

// EventKind names a tracker notification.
type EventKind int

const (
	ModeChanged EventKind = iota
	Selected
	Deselected
)

func (k EventKind) String() string {
	switch k {
	case ModeChanged:
		return "mode_changed"
	case Selected:
		return "text_selected"
	case Deselected:
		return "text_deselected"
	default:
		return "unknown"
	}
}

// Event is emitted on the tracker's stream. Selection is set for Selected.
type Event struct {
	Kind      EventKind
	Mode      chat.Mode
	Selection *chat.TextSelection
}

const subscriberBuffer = 16

// Tracker owns the current selection and the mode derived from it. All
// methods are safe for concurrent use.
type Tracker struct {
	// gesture serializes state changes with their event pairs.
	gesture     sync.Mutex
	mu          sync.Mutex
	doc         Document
	current     *chat.TextSelection
	mode        chat.Mode
	subscribers []chan Event
	logger      *log.Logger
}

// NewTracker creates a tracker over doc. A nil doc gives a tracker that
// ignores every gesture and stays in default mode.
func NewTracker(doc Document, logger *log.Logger) *Tracker {
	return &Tracker{doc: doc, mode: chat.DefaultMode(), logger: logger}
}

// Subscribe returns a channel receiving every subsequent event. Events
// are dropped for a subscriber whose buffer is full.
func (t *Tracker) Subscribe() <-chan Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Mode returns the current mode.
func (t *Tracker) Mode() chat.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Current returns the current selection, or nil.
func (t *Tracker) Current() *chat.TextSelection {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	sel := *t.current
	return &sel
}

// OnSelectionGesture is called when the reader finishes a selection
// gesture. A non-blank live selection becomes the current selection.
func (t *Tracker) OnSelectionGesture() {
	if t.doc == nil {
		return
	}
	r, ok := t.doc.Selection()
	if !ok {
		return
	}
	text := chat.SanitizeSelection(r.Text)
	if text == "" {
		return
	}

	sel := chat.NewTextSelection(text, r.Start, r.End)
	if chat.ValidateSelectionText(text) != nil {
		sel.Metadata["too_long"] = true
	}

	t.gesture.Lock()
	defer t.gesture.Unlock()
	t.mu.Lock()
	t.current = &sel
	t.mode = chat.SelectedTextMode(text)
	mode := t.mode
	t.mu.Unlock()

	t.logger.Info(log.LogEvent{
		Event: log.EventModeChanged,
		Mode:  string(mode.Kind()),
		Data:  map[string]any{"length": sel.Length(), "words": sel.WordCount()},
	})
	t.emit(Event{Kind: ModeChanged, Mode: mode})
	t.emit(Event{Kind: Selected, Mode: mode, Selection: &sel})
}

// OnKey handles the explicit deselection key.
func (t *Tracker) OnKey(key string) {
	if t.doc == nil || key != "esc" {
		return
	}
	t.deselect()
}

// OnClick deselects when the reader clicks elsewhere in the document while
// it holds no live selection. Clicks inside the chat widget never deselect.
func (t *Tracker) OnClick(target TargetKind) {
	if t.doc == nil || target.InChat() {
		return
	}
	if r, ok := t.doc.Selection(); ok && strings.TrimSpace(r.Text) != "" {
		return
	}
	t.deselect()
}

// ClearSelection deselects and clears the document's live selection.
func (t *Tracker) ClearSelection() {
	if t.doc == nil {
		return
	}
	t.deselect()
	t.doc.ClearSelection()
}

// SwitchToDefault abandons the current selection at the reader's request.
func (t *Tracker) SwitchToDefault() {
	t.ClearSelection()
}

func (t *Tracker) deselect() {
	t.gesture.Lock()
	defer t.gesture.Unlock()
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	t.current = nil
	t.mode = chat.DefaultMode()
	mode := t.mode
	t.mu.Unlock()

	t.logger.Info(log.LogEvent{Event: log.EventModeChanged, Mode: string(mode.Kind())})
	t.emit(Event{Kind: ModeChanged, Mode: mode})
	t.emit(Event{Kind: Deselected, Mode: mode})
}

func (t *Tracker) emit(ev Event) {
	t.mu.Lock()
	subs := append([]chan Event(nil), t.subscribers...)
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			t.logger.Warn(log.LogEvent{Event: log.EventSelectionDropped, Data: map[string]any{"kind": ev.Kind.String()}})
		}
	}
}
