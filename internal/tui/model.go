package tui

import "github.com/berth-dev/docchat/internal/chat"

// Pane identifies which half of the screen has focus.
type Pane int

const (
	PaneDoc Pane = iota
	PaneChat
)

// Layout holds the sizes of the screen regions. Sizes include borders.
type Layout struct {
	Width       int
	Height      int
	DocWidth    int
	ChatWidth   int
	BodyHeight  int
	ChatVisible bool
}

// statusBarHeight is the row reserved for the status bar.
const statusBarHeight = 1

// ComputeLayout splits the screen between the document and chat panes.
// The chat pane takes two fifths of the width when visible.
func ComputeLayout(width, height int, chatVisible bool) Layout {
	if width < 40 {
		width = 40
	}
	if height < 10 {
		height = 10
	}
	l := Layout{
		Width:       width,
		Height:      height,
		BodyHeight:  height - statusBarHeight,
		ChatVisible: chatVisible,
	}
	if chatVisible {
		l.ChatWidth = width * 2 / 5
		l.DocWidth = width - l.ChatWidth
	} else {
		l.DocWidth = width
	}
	return l
}

// InDoc reports whether screen column x falls in the document pane.
func (l Layout) InDoc(x int) bool {
	return x < l.DocWidth
}

// Model holds the application-wide state shared by the views.
type Model struct {
	Width        int
	Height       int
	Focus        Pane
	Widget       chat.WidgetState
	Health       string
	CtrlCPending bool
}

// NewModel creates a Model with the given persisted widget state, or the
// default visible widget when none was stored.
func NewModel(ws *chat.WidgetState) *Model {
	m := &Model{Width: 80, Height: 24, Widget: chat.DefaultWidgetState()}
	if ws != nil && ws.Validate() == nil {
		m.Widget = *ws
	}
	return m
}

// Layout computes the pane sizes for the current window.
func (m *Model) Layout() Layout {
	return ComputeLayout(m.Width, m.Height, m.Widget.IsVisible)
}
