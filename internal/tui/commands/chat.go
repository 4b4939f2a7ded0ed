// Package commands provides Bubble Tea commands for TUI operations.
package commands

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/coordinator"
	"github.com/berth-dev/docchat/internal/log"
	"github.com/berth-dev/docchat/internal/retry"
	"github.com/berth-dev/docchat/internal/selection"
	"github.com/berth-dev/docchat/internal/tui"
)

// StateChannel returns a Notify hook for coordinator.Options and the
// channel it feeds. Snapshots are dropped when the UI falls behind; the
// final state is always re-read after a send completes.
func StateChannel(size int) (func(coordinator.State), <-chan coordinator.State) {
	ch := make(chan coordinator.State, size)
	return func(s coordinator.State) {
		select {
		case ch <- s:
		default:
		}
	}, ch
}

// InitializeCmd resumes or creates the session in the background.
func InitializeCmd(c *coordinator.Coordinator) tea.Cmd {
	return func() tea.Msg {
		err := c.Initialize(context.Background())
		return tui.SessionReadyMsg{Err: err}
	}
}

// SendCmd sends one message through the coordinator.
func SendCmd(c *coordinator.Coordinator, text string) tea.Cmd {
	return func() tea.Msg {
		err := c.Send(context.Background(), text)
		return tui.SendDoneMsg{Err: err}
	}
}

// ClearCmd starts a fresh conversation.
func ClearCmd(c *coordinator.Coordinator) tea.Cmd {
	return func() tea.Msg {
		c.Clear(context.Background())
		return tui.ClearDoneMsg{}
	}
}

// HealthCmd probes the backend, retrying transient failures under p.
func HealthCmd(client *chatapi.Client, p retry.Policy, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		body, err := retry.Do(context.Background(), p, logger, "health", client.HealthCheck)
		if err != nil {
			return tui.HealthMsg{Err: err}
		}
		status := "ok"
		if s, ok := body["status"].(string); ok && s != "" {
			status = s
		}
		logger.Info(log.LogEvent{
			Event:      log.EventHealthChecked,
			URL:        client.BaseURL(),
			DurationMs: time.Since(start).Milliseconds(),
			Data:       map[string]any{"status": status},
		})
		return tui.HealthMsg{Status: status}
	}
}

// WaitForStateCmd blocks until the coordinator publishes a snapshot.
func WaitForStateCmd(ch <-chan coordinator.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return tui.StateMsg{State: s}
	}
}

// WaitForSelectionCmd blocks until the tracker emits an event.
func WaitForSelectionCmd(ch <-chan selection.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return tui.SelectionEventMsg{Event: ev}
	}
}

// HealthLabel formats a HealthMsg for the status bar.
func HealthLabel(msg tui.HealthMsg) string {
	if msg.Err != nil {
		return fmt.Sprintf("backend unreachable (%s)", chatapi.CodeOf(msg.Err))
	}
	return "backend " + msg.Status
}
