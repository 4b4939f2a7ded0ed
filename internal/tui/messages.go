package tui

import (
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/selection"
)

// ============================================================================
// Session Messages
// ============================================================================

// SessionReadyMsg signals that Initialize finished. Err is set when the
// coordinator is running degraded.
type SessionReadyMsg struct {
	Err error
}

// StateMsg carries a coordinator snapshot.
type StateMsg struct {
	State coordinator.State
}

// SendDoneMsg signals that a send finished.
type SendDoneMsg struct {
	Err error
}

// ClearDoneMsg signals that the conversation was reset.
type ClearDoneMsg struct{}

// ============================================================================
// Selection Messages
// ============================================================================

// SelectionEventMsg forwards a tracker event into the update loop.
type SelectionEventMsg struct {
	Event selection.Event
}

// ============================================================================
// Backend Messages
// ============================================================================

// HealthMsg reports the result of a backend health probe.
type HealthMsg struct {
	Status string
	Err    error
}

// CtrlCResetMsg clears the pending Ctrl+C confirmation.
type CtrlCResetMsg struct{}
