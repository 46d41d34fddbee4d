package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pindl/pkg/engine"
)

// maxVisibleRows caps the queue listing so long batches stay readable.
const maxVisibleRows = 20

// View renders the whole batch run.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("pindl"))

	if len(m.rows) == 0 && m.crashed == "" {
		sections = append(sections, fmt.Sprintf(" %s preparing queue...", m.spinner.View()))
	}

	sections = append(sections, m.renderRows()...)

	if m.total > 0 {
		sections = append(sections, "")
		sections = append(sections, fmt.Sprintf(" %s  %d/%d", m.progress.View(), m.current, m.total))
	}

	for _, note := range m.notes {
		sections = append(sections, noteStyle.Render(" "+note))
	}

	if m.crashed != "" {
		sections = append(sections, errorStyle.Render(" "+m.crashed))
	}

	if m.summary != nil {
		sections = append(sections, "", summaryStyle.Render(m.renderSummary()))
		sections = append(sections, helpStyle.Render("press q to exit"))
	} else {
		sections = append(sections, helpStyle.Render("press q to cancel"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// renderRows renders the visible window of the queue.
func (m Model) renderRows() []string {
	start := 0
	if len(m.rows) > maxVisibleRows {
		// Keep the active item in view.
		start = m.current - maxVisibleRows/2
		if start < 0 {
			start = 0
		}
		if start+maxVisibleRows > len(m.rows) {
			start = len(m.rows) - maxVisibleRows
		}
	}

	var lines []string
	for i := start; i < len(m.rows) && i < start+maxVisibleRows; i++ {
		lines = append(lines, m.renderRow(i))
	}
	if start > 0 {
		lines = append([]string{noteStyle.Render(fmt.Sprintf(" ... %d earlier", start))}, lines...)
	}
	if rest := len(m.rows) - start - maxVisibleRows; rest > 0 {
		lines = append(lines, noteStyle.Render(fmt.Sprintf(" ... %d more", rest)))
	}
	return lines
}

// renderRow renders one queue item with its status marker.
func (m Model) renderRow(i int) string {
	r := m.rows[i]
	url := truncate(r.URL, 60)

	switch r.Status {
	case engine.StatusProcessing:
		return activeRowStyle.Render(fmt.Sprintf(" %s %s", m.spinner.View(), url))
	case engine.StatusDownloaded:
		line := fmt.Sprintf(" ✓ %s", url)
		if r.Detail != "" {
			line += rowStyle.Render("  → " + truncate(r.Detail, 50))
		}
		return successStyle.Render(line)
	case engine.StatusFailed:
		line := fmt.Sprintf(" ✗ %s", url)
		if r.Detail != "" {
			line += "  " + truncate(r.Detail, 60)
		}
		return errorStyle.Render(line)
	default:
		return pendingStyle.Render(" • " + url)
	}
}

// renderSummary renders the final batch counts.
func (m Model) renderSummary() string {
	s := m.summary
	parts := []string{
		fmt.Sprintf("done: %d/%d succeeded", s.Success, s.Total),
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Cancelled {
		parts = append(parts, "cancelled")
	}
	if s.Discovered > 0 {
		parts = append(parts, fmt.Sprintf("%d discovered", s.Discovered))
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to at most n runes, ellipsized.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
