package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/wikigate/internal/monitor"
)

const logWindow = 50

// Model is the BubbleTea model for the run-monitor watch TUI.
type Model struct {
	baseURL  string
	interval time.Duration

	width  int
	height int

	snap      monitor.Snapshot
	connected bool
	lastPoll  time.Time
	since     int64
	logs      []monitor.LogEntry // newest first

	activity   activityGauge
	runSpinner spinner.Model // animates while runs are in flight
	theme      Theme

	lastError string
}

// New creates a watch model polling baseURL at the given interval.
func New(baseURL string, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	theme := NewDefaultTheme()
	run := spinner.New()
	run.Spinner = spinner.Dot
	run.Style = theme.StatusRunning
	return &Model{
		baseURL:    baseURL,
		interval:   interval,
		runSpinner: run,
		theme:      theme,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchSnapshot(m.baseURL),
		fetchLogs(m.baseURL, 0),
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		m.runSpinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.activity.tick()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.runSpinner, cmd = m.runSpinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.snap = monitor.Snapshot(msg)
		m.connected = true
		m.lastPoll = time.Now()
		m.lastError = ""
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg {
			return fetchSnapshot(m.baseURL)()
		})

	case logsMsg:
		if len(msg.Entries) > 0 {
			m.activity.logSeen()
			// prepend newest-first
			for _, e := range msg.Entries {
				m.logs = append([]monitor.LogEntry{e}, m.logs...)
			}
			if len(m.logs) > logWindow {
				m.logs = m.logs[:logWindow]
			}
		}
		m.since = msg.Last
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg {
			return fetchLogs(m.baseURL, m.since)()
		})

	case errMsg:
		m.connected = false
		m.lastError = msg.err.Error()
		// Restart the poll loop that died; the other is still scheduled by
		// its own success branch.
		retry := fetchSnapshot(m.baseURL)
		if msg.kind == pollLogs {
			retry = fetchLogs(m.baseURL, m.since)
		}
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return retry() })
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to run monitor..."
	}

	header := renderHeader(m.snap, m.connected, m.activity, m.runSpinner, m.theme, m.width)
	logs := renderLogs(m.logs, m.theme, m.width, m.height)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := m.theme.Dim.Render(" [q] Quit")

	parts := []string{header, logs}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
