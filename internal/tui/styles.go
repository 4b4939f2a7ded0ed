package tui

import "github.com/charmbracelet/lipgloss"

// Color constants.
const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	dimColor       = "#6B7280" // Gray
)

// Style variables for consistent TUI rendering.
var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// SelectedStyle highlights selected items in primary color.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// SuccessStyle renders success messages in green.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	// ErrorStyle renders error messages in red.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	// WarningStyle renders warning messages in amber.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// StatusBarStyle provides styling for the status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	// HighlightStyle marks selected lines in the document pane.
	HighlightStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#4C1D95")).
			Foreground(lipgloss.Color("#FFFFFF"))

	// CursorStyle marks the cursor line in the document pane.
	CursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151"))

	// PaneStyle frames an unfocused pane.
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(dimColor))

	// FocusedPaneStyle frames the focused pane.
	FocusedPaneStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(primaryColor))

	// FocusModeStyle renders the mode indicator while scoped to a selection.
	FocusModeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(warningColor)).
			Foreground(lipgloss.Color("#111827")).
			Bold(true).
			Padding(0, 1)

	// DefaultModeStyle renders the mode indicator in default mode.
	DefaultModeStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#374151")).
				Foreground(lipgloss.Color("#9CA3AF")).
				Padding(0, 1)
)

// Message status markers (pre-rendered strings).
var (
	// MarkDelivered follows a delivered user message.
	MarkDelivered = SuccessStyle.Render("\u2713")

	// MarkPending follows a user message awaiting a reply.
	MarkPending = WarningStyle.Render("\u25cb")

	// MarkFailed follows a message that could not be delivered.
	MarkFailed = ErrorStyle.Render("(Failed to deliver)")
)
