package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/docs"
	"github.com/berth-dev/docchat/internal/tui"
)

// ============================================================================
// Message Types
// ============================================================================

// SendChatMsg is sent when the user submits a chat message.
type SendChatMsg struct {
	Content string
}

// ============================================================================
// ChatModel
// ============================================================================

// chatChromeRows is everything in the pane that is not the transcript:
// borders, mode indicator, its preview, the status line and the input.
const chatChromeRows = 2 + 3 + 1 + 3

// ChatModel renders the transcript, the mode indicator and the input box.
type ChatModel struct {
	state    coordinator.State
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *docs.Renderer
	notice   string
	width    int
	height   int
	focused  bool
}

// NewChatModel creates a ChatModel sized to the chat pane.
func NewChatModel(state coordinator.State, width, height int) ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about the documentation..."
	ta.CharLimit = chat.MaxMessageLength
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Enter submits, so newline moves to ctrl+j.
	keyMap := ta.KeyMap
	keyMap.InsertNewline = tui.DefaultKeyMap.NewLine
	ta.KeyMap = keyMap

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))

	m := ChatModel{
		state:    state,
		textarea: ta,
		viewport: viewport.New(20, 5),
		spinner:  sp,
	}
	m.SetSize(width, height)
	return m
}

// Init returns the initial command for the chat view.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// SetSize resizes the pane (outer size, borders included).
func (m *ChatModel) SetSize(width, height int) {
	if m.width == width && m.height == height {
		return
	}
	m.width, m.height = width, height
	inner := max(width-2, 20)
	m.viewport.Width = inner
	m.viewport.Height = max(height-chatChromeRows, 3)
	m.textarea.SetWidth(inner)

	// Glamour styles carry their own margin.
	if r, err := docs.NewRenderer("dark", max(inner-4, 16)); err == nil {
		m.renderer = r
	}
	m.refresh()
}

// SetFocused moves keyboard focus into or out of the input box.
func (m *ChatModel) SetFocused(f bool) tea.Cmd {
	m.focused = f
	if f && !m.state.Loading {
		return m.textarea.Focus()
	}
	m.textarea.Blur()
	return nil
}

// SetState replaces the coordinator snapshot and re-renders the transcript.
func (m *ChatModel) SetState(s coordinator.State) tea.Cmd {
	wasLoading := m.state.Loading
	m.state = s
	m.refresh()
	switch {
	case s.Loading && !wasLoading:
		m.textarea.Blur()
		return m.spinner.Tick
	case !s.Loading && wasLoading && m.focused:
		return m.textarea.Focus()
	}
	return nil
}

// SetNotice shows a one-line status below the transcript, or clears it.
func (m *ChatModel) SetNotice(s string) {
	m.notice = s
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(formatMessages(m.state.Transcript, m.renderer, m.viewport.Width))
	m.viewport.GotoBottom()
}

// Update handles messages for the chat view.
func (m ChatModel) Update(msg tea.Msg) (ChatModel, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if key.Matches(msg, tui.DefaultKeyMap.Send) {
			if m.state.Loading {
				return m, nil
			}
			content := strings.TrimSpace(m.textarea.Value())
			if content == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.notice = ""
			return m, func() tea.Msg {
				return SendChatMsg{Content: content}
			}
		}

	case spinner.TickMsg:
		if m.state.Loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if !m.state.Loading {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the chat pane.
func (m ChatModel) View() string {
	style := tui.PaneStyle
	if m.focused {
		style = tui.FocusedPaneStyle
	}
	inner := max(m.width-2, 20)

	var b strings.Builder
	b.WriteString(m.modeIndicator(inner))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.state.Loading:
		b.WriteString(fmt.Sprintf("%s Thinking...", m.spinner.View()))
	case m.notice != "":
		b.WriteString(tui.WarningStyle.Render(truncate(m.notice, inner)))
	case m.state.Degraded:
		b.WriteString(tui.DimStyle.Render(truncate("Offline: messages stay local", inner)))
	}
	b.WriteString("\n")

	if m.state.Loading {
		b.WriteString(tui.DimStyle.Render(m.textarea.View()))
	} else {
		b.WriteString(m.textarea.View())
	}

	return style.Width(inner).Height(m.height - 2).Render(b.String())
}

// modeIndicator renders the mode badge, its description and, in focus
// mode, a preview of the selected text. It is always three rows.
func (m ChatModel) modeIndicator(width int) string {
	mode := m.state.Mode
	badge := tui.DefaultModeStyle.Render(mode.Label())
	if mode.IsSelectedText() {
		badge = tui.FocusModeStyle.Render(mode.Label())
	}
	desc := tui.DimStyle.Render(truncate(mode.Description(), width))
	preview := ""
	if mode.IsSelectedText() {
		preview = tui.DimStyle.Render(truncate(fmt.Sprintf("%q  (ctrl+d to clear)", m.state.Preview()), width))
	}
	return badge + "\n" + desc + "\n" + preview
}

// formatMessages formats the transcript for the viewport.
func formatMessages(messages []chat.Message, r *docs.Renderer, width int) string {
	if len(messages) == 0 {
		return tui.DimStyle.Render("No messages yet. Start the conversation!")
	}

	var b strings.Builder

	userStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")). // Green for user
		Bold(true)

	assistantStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	for i, msg := range messages {
		switch msg.Sender {
		case chat.SenderUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString(" ")
			b.WriteString(userMarker(msg.Status))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Width(width).Render(msg.Content))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(renderAssistant(msg.Content, r, width))
			if msg.Failed() {
				b.WriteString("\n")
				b.WriteString(tui.MarkFailed)
			}
			if src := formatSources(msg.Sources, width); src != "" {
				b.WriteString("\n")
				b.WriteString(src)
			}
		}

		if i < len(messages)-1 {
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

func userMarker(s chat.MessageStatus) string {
	switch s {
	case chat.MessageDelivered:
		return tui.MarkDelivered
	case chat.MessageError:
		return tui.ErrorStyle.Render("✗")
	default:
		return tui.MarkPending
	}
}

func renderAssistant(content string, r *docs.Renderer, width int) string {
	if r != nil {
		if out, err := r.Render(content); err == nil {
			return out
		}
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

func formatSources(sources []chat.ContextSource, width int) string {
	if len(sources) == 0 {
		return ""
	}
	lines := []string{tui.DimStyle.Render("Sources:")}
	for _, s := range sources {
		line := "  - " + s.Title
		if s.URL != "" {
			line += " (" + s.URL + ")"
		}
		lines = append(lines, tui.DimStyle.Render(truncate(line, width)))
	}
	return strings.Join(lines, "\n")
}
