package selection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-dev/docchat/internal/chat"
)

type fakeDoc struct {
	mu      sync.Mutex
	r       Range
	has     bool
	cleared int
}

func (d *fakeDoc) Selection() (Range, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r, d.has
}

func (d *fakeDoc) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.has = false
	d.r = Range{}
	d.cleared++
}

func (d *fakeDoc) selectText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.r = Range{Text: text, Start: 0, End: len(text)}
	d.has = true
}

func drain(ch <-chan Event) []Event {
	var evs []Event
	for {
		select {
		case ev := <-ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func kinds(evs []Event) []EventKind {
	out := make([]EventKind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

func TestSelectionGestureEntersFocusMode(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	events := tr.Subscribe()

	doc.selectText("  Robots perceive the world  ")
	tr.OnSelectionGesture()

	m := tr.Mode()
	assert.True(t, m.IsSelectedText())
	assert.Equal(t, "Robots perceive the world", m.SelectedText())

	evs := drain(events)
	require.Equal(t, []EventKind{ModeChanged, Selected}, kinds(evs))
	require.NotNil(t, evs[1].Selection)
	assert.Equal(t, "Robots perceive the world", evs[1].Selection.Content)
	assert.Equal(t, 4, evs[1].Selection.WordCount())
}

func TestBlankSelectionIgnored(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	events := tr.Subscribe()

	doc.selectText("   \n ")
	tr.OnSelectionGesture()

	assert.Equal(t, chat.ModeDefault, tr.Mode().Kind())
	assert.Empty(t, drain(events))
}

func TestEscapeDeselects(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	doc.selectText("Robots perceive the world")
	tr.OnSelectionGesture()
	events := tr.Subscribe()

	tr.OnKey("esc")

	assert.Equal(t, chat.ModeDefault, tr.Mode().Kind())
	assert.Nil(t, tr.Current())
	assert.Equal(t, []EventKind{ModeChanged, Deselected}, kinds(drain(events)))
}

func TestDeselectWithoutSelectionEmitsNothing(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	events := tr.Subscribe()

	tr.OnKey("esc")
	tr.OnClick(TargetBody)
	tr.ClearSelection()

	assert.Empty(t, drain(events))
}

func TestClickRules(t *testing.T) {
	tests := []struct {
		name        string
		target      TargetKind
		liveInDoc   bool
		wantDefault bool
	}{
		{"body click clears", TargetBody, false, true},
		{"content click clears", TargetContent, false, true},
		{"chat input keeps", TargetChatInput, false, false},
		{"send button keeps", TargetChatButton, false, false},
		{"mode indicator keeps", TargetModeIndicator, false, false},
		{"widget keeps", TargetChatWidget, false, false},
		{"live selection keeps", TargetBody, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &fakeDoc{}
			tr := NewTracker(doc, nil)
			doc.selectText("Robots perceive the world")
			tr.OnSelectionGesture()
			if !tt.liveInDoc {
				doc.ClearSelection()
			}

			tr.OnClick(tt.target)

			assert.Equal(t, tt.wantDefault, !tr.Mode().IsSelectedText())
		})
	}
}

func TestClearSelectionClearsDocument(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	doc.selectText("Robots perceive the world")
	tr.OnSelectionGesture()

	tr.ClearSelection()

	assert.False(t, tr.Mode().IsSelectedText())
	_, live := doc.Selection()
	assert.False(t, live)
	assert.Equal(t, 1, doc.cleared)
}

func TestNilDocumentIsInert(t *testing.T) {
	tr := NewTracker(nil, nil)
	events := tr.Subscribe()

	tr.OnSelectionGesture()
	tr.OnKey("esc")
	tr.OnClick(TargetBody)
	tr.ClearSelection()
	tr.SwitchToDefault()

	assert.Equal(t, chat.ModeDefault, tr.Mode().Kind())
	assert.Empty(t, drain(events))
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	_ = tr.Subscribe() // never drained

	for i := 0; i < subscriberBuffer; i++ {
		doc.selectText("Robots perceive the world")
		tr.OnSelectionGesture()
		tr.OnKey("esc")
	}
	assert.Equal(t, chat.ModeDefault, tr.Mode().Kind())
}

func TestScriptStrippedFromSelection(t *testing.T) {
	doc := &fakeDoc{}
	tr := NewTracker(doc, nil)
	doc.selectText("Robots <script>steal()</script>perceive")
	tr.OnSelectionGesture()
	assert.Equal(t, "Robots perceive", tr.Mode().SelectedText())
}
