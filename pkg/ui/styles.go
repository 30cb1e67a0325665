package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg      = lipgloss.Color("#0A0E27")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	finishedStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(neonOrange)
)

// Row is one label/value line of a panel
type Row struct {
	Label string
	Value string
}

// RenderPanel draws rows under a title inside a rounded border.
// Labels are padded to a common width; multi-line values keep their lines.
func RenderPanel(title string, rows []Row) string {
	width := 0
	for _, row := range rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		label := labelStyle.Render(row.Label + strings.Repeat(" ", width-len(row.Label)))
		value := valueStyle.Render(row.Value)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, "  ", value))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), panelStyle.Render(body))
}

// RenderProgress draws a bar of width cells for done out of total
func RenderProgress(done, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	if done > total {
		done = total
	}
	if done < 0 {
		done = 0
	}

	filled := done * width / total
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)

	if done == total {
		return finishedStyle.Render(bar)
	}
	return pendingStyle.Render(bar)
}
