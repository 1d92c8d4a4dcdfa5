package watch

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/wikigate/internal/monitor"
)

// renderLogs shows the trailing run log, newest first, fit to the window.
func renderLogs(logs []monitor.LogEntry, theme Theme, width, height int) string {
	innerWidth := width - 4

	rows := height - 12
	if rows < 3 {
		rows = 3
	}
	if rows > len(logs) {
		rows = len(logs)
	}

	lines := []string{theme.Header.Render(" RUN LOG")}
	if len(logs) == 0 {
		lines = append(lines, theme.Dim.Render(" no log entries yet"))
	}
	for _, entry := range logs[:rows] {
		level := theme.Dim
		switch entry.Level {
		case "error":
			level = theme.StatusFailed
		case "warn":
			level = theme.StatusRunning
		}
		line := fmt.Sprintf(" %s %s %s %s",
			theme.Dim.Render(entry.At.Format("15:04:05")),
			level.Render(fmt.Sprintf("%-5s", entry.Level)),
			theme.Highlight.Render(entry.Resource),
			entry.Message,
		)
		if lipgloss.Width(line) > innerWidth && innerWidth > 1 {
			line = truncateANSI(line, innerWidth)
		}
		lines = append(lines, line)
	}

	return theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}

// truncateANSI trims a styled line to the target display width by dropping
// trailing runes. Style resets survive because lipgloss closes them per
// segment.
func truncateANSI(line string, width int) string {
	runes := []rune(line)
	for lipgloss.Width(string(runes)) > width && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
