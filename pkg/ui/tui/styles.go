package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	accent      = lipgloss.Color("#E60023")
	green       = lipgloss.Color("#39FF14")
	yellow      = lipgloss.Color("#FFFF00")
	red         = lipgloss.Color("#FF4040")
	dimWhite    = lipgloss.Color("#B0B0B0")
	brightWhite = lipgloss.Color("#FFFFFF")

	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	activeRowStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(green)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)

	pendingStyle = lipgloss.NewStyle().
			Foreground(yellow)

	noteStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Padding(0, 1)
)
