package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"pindl/pkg/engine"
)

// Run drives a full-screen view over the engine's event stream and blocks
// until the run completes or the user quits. Quitting mid-run cancels via
// the provided cancel func; remaining events are drained so the engine
// goroutine can exit.
func Run(events <-chan engine.Event, cancel context.CancelFunc) error {
	model := NewModel(events, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen())

	_, err := program.Run()

	for range events {
	}
	return err
}
