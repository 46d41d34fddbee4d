package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pindl/pkg/engine"
)

// row tracks the display state of one queue item.
type row struct {
	URL    string
	Status engine.Status
	Detail string
}

// Model renders a batch run driven by engine events.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	rows    []row
	notes   []string
	current int
	total   int

	summary *engine.Completed
	crashed string

	events <-chan engine.Event
	cancel context.CancelFunc

	width  int
	height int
}

// NewModel creates a TUI model that consumes events from the given channel.
// cancel is invoked when the user quits mid-run.
func NewModel(events <-chan engine.Event, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:  s,
		progress: p,
		events:   events,
		cancel:   cancel,
	}
}

// Init starts the spinner and begins consuming engine events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}
