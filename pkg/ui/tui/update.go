package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"pindl/pkg/engine"
)

// eventMsg wraps a single engine event for the bubbletea loop.
type eventMsg struct {
	event engine.Event
}

// eventsClosedMsg signals that the engine channel has been drained.
type eventsClosedMsg struct{}

// waitForEvent blocks on the engine channel and converts the next event
// into a tea.Msg.
func waitForEvent(events <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			if m.summary != nil || m.crashed != "" {
				return m, tea.Quit
			}
			return m, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 20 {
			m.progress.Width = msg.Width - 10
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case eventMsg:
		cmd := m.applyEvent(msg.event)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case eventsClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// applyEvent folds one engine event into the display state.
func (m *Model) applyEvent(ev engine.Event) tea.Cmd {
	switch ev := ev.(type) {
	case engine.QueuePrepared:
		m.rows = make([]row, len(ev.Items))
		for i, item := range ev.Items {
			m.rows[i] = row{URL: item, Status: engine.StatusPending}
		}
		m.notes = append(m.notes, ev.Notes...)
		m.total = len(ev.Items)

	case engine.RowUpdate:
		// Row indexes are 1-based.
		if ev.Index < 1 || ev.Index > len(m.rows) {
			return nil
		}
		r := &m.rows[ev.Index-1]
		r.Status = ev.Status
		switch ev.Status {
		case engine.StatusDownloaded:
			r.Detail = ev.SavedPath
		case engine.StatusFailed:
			r.Detail = ev.Error
		}

	case engine.Progress:
		m.current = ev.Current
		m.total = ev.Total
		if ev.Total > 0 {
			return m.progress.SetPercent(float64(ev.Current) / float64(ev.Total))
		}

	case engine.Completed:
		summary := ev
		m.summary = &summary
		// The summary carries the full note list, including the ones
		// already shown at queue time.
		m.notes = ev.Notes

	case engine.Crashed:
		m.crashed = fmt.Sprintf("fatal: %s", ev.Message)
	}
	return nil
}
