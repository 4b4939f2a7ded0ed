// Package app provides the main TUI application that wires all views together.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/docs"
	"github.com/berth-dev/docchat/internal/log"
	"github.com/berth-dev/docchat/internal/retry"
	"github.com/berth-dev/docchat/internal/selection"
	"github.com/berth-dev/docchat/internal/storage"
	"github.com/berth-dev/docchat/internal/tui"
	"github.com/berth-dev/docchat/internal/tui/commands"
	"github.com/berth-dev/docchat/internal/tui/views"
)

const ctrlCWindow = time.Second

// Deps are the long-lived services the application drives.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Tracker     *selection.Tracker
	Highlight   *views.Highlight
	States      <-chan coordinator.State
	Store       *storage.Store
	Client      *chatapi.Client
	Health      retry.Policy
	Pages       []docs.Page
	Logger      *log.Logger
}

// App is the main TUI application: a document pane with a chat pane
// beside it.
type App struct {
	model *tui.Model
	deps  Deps

	selections <-chan selection.Event
	breaker    *retry.Breaker

	// View models
	docView  views.DocModel
	chatView views.ChatModel
}

// New creates a new App. The tracker subscription is taken here so no
// event emitted before Init is lost.
func New(d Deps) *App {
	model := tui.NewModel(d.Store.GetWidgetState())
	l := model.Layout()

	a := &App{
		model:      model,
		deps:       d,
		selections: d.Tracker.Subscribe(),
		breaker:    retry.NewBreaker(3),
		docView:    views.NewDocModel(d.Pages, d.Highlight, l.DocWidth, l.BodyHeight),
		chatView:   views.NewChatModel(d.Coordinator.State(), max(l.ChatWidth, 24), l.BodyHeight),
	}
	a.model.Health = "checking backend..."
	return a
}

// Init starts the session, the health probe and the event listeners.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		commands.InitializeCmd(a.deps.Coordinator),
		commands.HealthCmd(a.deps.Client, a.deps.Health, a.deps.Logger),
		commands.WaitForStateCmd(a.deps.States),
		commands.WaitForSelectionCmd(a.selections),
		a.chatView.Init(),
	)
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := tui.DefaultKeyMap

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC):
			if a.model.CtrlCPending {
				// Second press within timeout - exit
				return a, tea.Quit
			}
			a.model.CtrlCPending = true
			return a, tea.Tick(ctrlCWindow, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})

		case key.Matches(msg, keys.Tab):
			return a, a.focus(a.other())

		case key.Matches(msg, keys.ToggleWidget):
			return a, a.toggleWidget()

		case key.Matches(msg, keys.Clear):
			a.chatView.SetNotice("")
			return a, commands.ClearCmd(a.deps.Coordinator)

		case key.Matches(msg, keys.DefaultMode):
			a.deps.Coordinator.SwitchToDefault()
			a.docView.ClearVisual()
			return a, a.chatView.SetState(a.deps.Coordinator.State())

		case key.Matches(msg, keys.Deselect):
			a.deps.Tracker.OnKey(tui.KeyEsc)
			a.docView.ClearVisual()
			return a, nil
		}
		return a.routeKey(msg)

	case tea.MouseMsg:
		return a.routeMouse(msg)

	case views.SelectionGestureMsg:
		a.deps.Tracker.OnSelectionGesture()
		return a, nil

	case views.DocClickMsg:
		a.deps.Tracker.OnClick(selection.TargetContent)
		return a, nil

	case views.SendChatMsg:
		a.model.Widget = a.model.Widget.StartLoading()
		return a, commands.SendCmd(a.deps.Coordinator, msg.Content)

	case tui.SelectionEventMsg:
		cmd := a.chatView.SetState(a.deps.Coordinator.State())
		if msg.Event.Kind == selection.ModeChanged && msg.Event.Mode.IsSelectedText() && !a.model.Widget.IsVisible {
			cmd = tea.Batch(cmd, a.toggleWidget())
		}
		return a, tea.Batch(cmd, commands.WaitForSelectionCmd(a.selections))

	case tui.StateMsg:
		cmd := a.chatView.SetState(msg.State)
		return a, tea.Batch(cmd, commands.WaitForStateCmd(a.deps.States))

	case tui.SessionReadyMsg:
		cmd := a.chatView.SetState(a.deps.Coordinator.State())
		if msg.Err != nil {
			a.chatView.SetNotice("Working offline: " + chatapi.UserMessage(msg.Err))
		}
		return a, cmd

	case tui.SendDoneMsg:
		a.model.Widget = a.model.Widget.StopLoading()
		cmd := a.chatView.SetState(a.deps.Coordinator.State())
		switch {
		case msg.Err == nil:
			a.breaker.RecordSuccess()
			a.model.Widget = a.model.Widget.ClearError()
		case errors.Is(msg.Err, coordinator.ErrNoSession):
			a.chatView.SetNotice("No session: press ctrl+l to reconnect")
		default:
			text := chatapi.UserMessage(msg.Err)
			a.model.Widget = a.model.Widget.SetError(text)
			a.chatView.SetNotice(text)
			// A run of transport failures usually means the backend went away.
			if chatapi.IsTransient(msg.Err) && a.breaker.RecordFailure() {
				a.model.Health = "re-checking backend..."
				cmd = tea.Batch(cmd, commands.HealthCmd(a.deps.Client, a.deps.Health, a.deps.Logger))
			}
		}
		a.deps.Store.SaveWidgetState(a.model.Widget)
		return a, cmd

	case tui.ClearDoneMsg:
		a.model.Widget = a.model.Widget.ClearError()
		a.deps.Store.SaveWidgetState(a.model.Widget)
		return a, a.chatView.SetState(a.deps.Coordinator.State())

	case tui.HealthMsg:
		a.model.Health = commands.HealthLabel(msg)
		if msg.Err == nil {
			a.breaker.RecordSuccess()
		}
		return a, nil

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

func (a *App) routeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.model.Focus == tui.PaneChat {
		a.chatView, cmd = a.chatView.Update(msg)
	} else {
		a.docView, cmd = a.docView.Update(msg)
	}
	return a, cmd
}

func (a *App) routeMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	l := a.model.Layout()
	press := msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft

	if l.InDoc(msg.X) {
		if press && a.model.Focus != tui.PaneDoc {
			cmds = append(cmds, a.focus(tui.PaneDoc))
		}
		a.docView, cmd = a.docView.Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)
	}

	// Release of a drag that started in the document still ends the gesture.
	if msg.Action == tea.MouseActionRelease {
		a.docView, cmd = a.docView.Update(msg)
		cmds = append(cmds, cmd)
	}
	if press {
		a.deps.Tracker.OnClick(selection.TargetChatWidget)
		if a.model.Focus != tui.PaneChat {
			cmds = append(cmds, a.focus(tui.PaneChat))
		}
	}
	a.chatView, cmd = a.chatView.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) other() tui.Pane {
	if a.model.Focus == tui.PaneDoc && a.model.Widget.IsVisible {
		return tui.PaneChat
	}
	return tui.PaneDoc
}

func (a *App) focus(p tui.Pane) tea.Cmd {
	a.model.Focus = p
	a.docView.SetFocused(p == tui.PaneDoc)
	return a.chatView.SetFocused(p == tui.PaneChat)
}

// toggleWidget shows or hides the chat pane and persists the choice.
func (a *App) toggleWidget() tea.Cmd {
	a.model.Widget = a.model.Widget.Toggle()
	a.deps.Store.SaveWidgetState(a.model.Widget)
	a.resize()
	if a.model.Widget.IsVisible {
		return a.focus(tui.PaneChat)
	}
	return a.focus(tui.PaneDoc)
}

func (a *App) resize() {
	l := a.model.Layout()
	a.docView.SetSize(l.DocWidth, l.BodyHeight)
	if l.ChatVisible {
		a.chatView.SetSize(l.ChatWidth, l.BodyHeight)
	}
}

// View renders the current application state.
func (a *App) View() string {
	l := a.model.Layout()

	body := a.docView.View()
	if l.ChatVisible {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, a.chatView.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar(l.Width))
}

func (a *App) renderStatusBar(width int) string {
	var text string
	if a.model.CtrlCPending {
		text = tui.WarningStyle.Render("Press Ctrl+C again to exit")
	} else {
		session := "no session"
		if st := a.deps.Coordinator.State(); st.Session != nil {
			session = "session " + shortID(st.Session.ID)
		}
		health := a.model.Health
		if a.breaker.Open() {
			health = tui.WarningStyle.Render("backend unstable") + " · " + health
		}
		text = fmt.Sprintf("%s · %s · tab: focus · v: select · ctrl+w: chat · ctrl+l: new chat · ctrl+c: quit",
			health, session)
	}
	return tui.StatusBarStyle.Width(width).MaxHeight(1).Render(text)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
