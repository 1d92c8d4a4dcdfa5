package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/wikigate/internal/monitor"
)

type snapshotMsg monitor.Snapshot

type logsMsg struct {
	Entries []monitor.LogEntry `json:"entries"`
	Last    int64              `json:"last"`
}

type tickMsg time.Time

type pollKind int

const (
	pollSnapshot pollKind = iota
	pollLogs
)

// errMsg carries which poll failed so the model can restart that loop; a
// poll that dies without a successor never fires again.
type errMsg struct {
	kind pollKind
	err  error
}

var httpClient = &http.Client{Timeout: 2 * time.Second}

// fetchSnapshot polls the run-monitor counters.
func fetchSnapshot(baseURL string) tea.Cmd {
	return func() tea.Msg {
		resp, err := httpClient.Get(baseURL + "/api/run-monitor")
		if err != nil {
			return errMsg{pollSnapshot, err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errMsg{pollSnapshot, fmt.Errorf("run-monitor returned %d", resp.StatusCode)}
		}
		var snap monitor.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return errMsg{pollSnapshot, err}
		}
		return snapshotMsg(snap)
	}
}

// fetchLogs polls the run-monitor log ring for entries after since.
func fetchLogs(baseURL string, since int64) tea.Cmd {
	return func() tea.Msg {
		url := fmt.Sprintf("%s/api/run-monitor/logs?since=%d", baseURL, since)
		resp, err := httpClient.Get(url)
		if err != nil {
			return errMsg{pollLogs, err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errMsg{pollLogs, fmt.Errorf("run-monitor logs returned %d", resp.StatusCode)}
		}
		var logs logsMsg
		if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
			return errMsg{pollLogs, err}
		}
		return logs
	}
}
