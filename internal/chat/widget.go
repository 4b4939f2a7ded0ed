package chat

import "errors"

// WidgetState is the display state of the chat widget. It is persisted
// next to the session record so a restart reopens the widget as it was.
type WidgetState struct {
	IsVisible    bool           `json:"isVisible"`
	IsMinimized  bool           `json:"isMinimized"`
	IsLoading    bool           `json:"isLoading"`
	HasError     bool           `json:"hasError"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Session      *SessionRecord `json:"session,omitempty"`
}

// DefaultWidgetState is a visible, idle widget.
func DefaultWidgetState() WidgetState {
	return WidgetState{IsVisible: true}
}

// Show makes the widget visible and expanded.
func (w WidgetState) Show() WidgetState {
	w.IsVisible = true
	w.IsMinimized = false
	return w
}

// Hide hides the widget.
func (w WidgetState) Hide() WidgetState {
	w.IsVisible = false
	return w
}

// Minimize collapses the widget.
func (w WidgetState) Minimize() WidgetState {
	w.IsVisible = false
	w.IsMinimized = true
	return w
}

// Expand restores a minimized widget.
func (w WidgetState) Expand() WidgetState {
	return w.Show()
}

// Toggle switches between visible and minimized.
func (w WidgetState) Toggle() WidgetState {
	if w.IsVisible {
		return w.Minimize()
	}
	return w.Expand()
}

func (w WidgetState) StartLoading() WidgetState {
	w.IsLoading = true
	return w
}

func (w WidgetState) StopLoading() WidgetState {
	w.IsLoading = false
	return w
}

// SetError records a user-visible error.
func (w WidgetState) SetError(msg string) WidgetState {
	w.HasError = true
	w.ErrorMessage = msg
	return w
}

func (w WidgetState) ClearError() WidgetState {
	w.HasError = false
	w.ErrorMessage = ""
	return w
}

// Validate checks the widget state invariants.
func (w WidgetState) Validate() error {
	if w.IsVisible && w.IsMinimized {
		return errors.New("widget cannot be both visible and minimized")
	}
	if w.HasError && w.ErrorMessage == "" {
		return errors.New("error state requires an error message")
	}
	return nil
}
