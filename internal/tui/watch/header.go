package watch

import (
	"fmt"
	"strings"
	"time"

	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/wikigate/internal/monitor"
)

func renderHeader(snap monitor.Snapshot, connected bool, activity activityGauge, runSpinner bspinner.Model, theme Theme, width int) string {
	innerWidth := width - 4

	statusText := theme.StatusOK.Render("CONNECTED")
	statusIcon := "✅"
	if !connected {
		statusText = theme.StatusFailed.Render("CONNECTING")
		statusIcon = "🔌"
	}

	lastLogStr := "never"
	if !activity.lastActivity().IsZero() {
		ago := time.Since(activity.lastActivity()).Round(time.Second)
		lastLogStr = fmt.Sprintf("%s ago", ago)
	}

	tickerStr := theme.Highlight.Render(activity.glyph())
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	titleText := fmt.Sprintf(" WIKIGATE RUN MONITOR %s", tickerStr)

	titleWidth := lipgloss.Width(titleText)
	clockWidth := lipgloss.Width(clock)
	pad := innerWidth - titleWidth - clockWidth - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	runningStr := theme.StatusRunning.Render(fmt.Sprintf("%d", snap.Running))
	if snap.Running > 0 {
		runningStr = runSpinner.View() + runningStr
	}
	statsLine := fmt.Sprintf(" %s %s  Queued: %s  Running: %s  Completed: %d  Avg: %d ms",
		statusIcon, statusText,
		theme.StatusQueued.Render(fmt.Sprintf("%d", snap.Queued)),
		runningStr,
		snap.Completed,
		snap.AverageMillis,
	)

	activityLine := fmt.Sprintf(" Last log: %s %s", lastLogStr, activity.render(theme))

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleLine,
		statsLine,
		activityLine,
	)

	return theme.Border.Width(innerWidth).Render(content)
}
