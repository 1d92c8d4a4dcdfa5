// Package runner executes test and suite pages through an external
// test-system process and registers the bus handlers for the test
// addresses. The child speaks a line-delimited JSON protocol on stdout;
// page content arrives on its stdin.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/wikigate/internal/log"
	"github.com/mattjoyce/wikigate/internal/monitor"
)

const (
	// runTimeout bounds a single child-process execution.
	runTimeout = 10 * time.Minute

	// terminationGracePeriod is the wait after SIGTERM before SIGKILL.
	terminationGracePeriod = 5 * time.Second

	maxStderrBytes = 64 * 1024
)

// event is one line of the child's stdout protocol. Log lines carry level
// and message; the final result line carries the counts.
type event struct {
	Type       string `json:"type"`
	Level      string `json:"level,omitempty"`
	Message    string `json:"message,omitempty"`
	TestSystem string `json:"testSystem,omitempty"`

	Right      int `json:"right,omitempty"`
	Wrong      int `json:"wrong,omitempty"`
	Ignored    int `json:"ignored,omitempty"`
	Exceptions int `json:"exceptions,omitempty"`
}

// Summary is the outcome of one run.
type Summary struct {
	RunID      string `json:"runId"`
	Page       string `json:"page"`
	RunType    string `json:"runType"`
	Status     string `json:"status"`
	Right      int    `json:"right"`
	Wrong      int    `json:"wrong"`
	Ignored    int    `json:"ignored"`
	Exceptions int    `json:"exceptions"`
	DurationMS int64  `json:"durationMs"`

	ArtifactDir string `json:"artifactDir,omitempty"`
}

// Runner spawns the configured test-system command per run.
type Runner struct {
	command    []string
	historyDir string
	mon        *monitor.RunMonitor
	logger     *slog.Logger
}

// New creates a runner. An empty command makes every run a no-op pass,
// which keeps a wiki without a test system usable.
func New(command []string, historyDir string, mon *monitor.RunMonitor) *Runner {
	return &Runner{
		command:    command,
		historyDir: historyDir,
		mon:        mon,
		logger:     log.WithComponent("runner"),
	}
}

// Run executes one page and returns its summary. The page content is fed to
// the child's stdin; stdout events stream into the run-monitor log.
func (r *Runner) Run(ctx context.Context, runType, page, content string) (Summary, error) {
	start := time.Now()
	summary := Summary{
		RunID:   uuid.NewString(),
		Page:    page,
		RunType: runType,
		Status:  "passed",
	}

	if len(r.command) == 0 {
		r.mon.Log("info", "no test system configured, recording empty pass", page, "")
	} else {
		if err := r.spawn(ctx, page, content, &summary); err != nil {
			return Summary{}, err
		}
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	if summary.Exceptions > 0 {
		summary.Status = "error"
	} else if summary.Wrong > 0 {
		summary.Status = "failed"
	}
	return summary, nil
}

// spawn runs the child process and folds its event stream into summary.
func (r *Runner) spawn(ctx context.Context, page, content string, summary *Summary) error {
	runLogger := log.WithRun(summary.RunID).With("page", page)

	cmd := exec.Command(r.command[0], r.command[1:]...)
	cmd.Stdin = bytes.NewReader([]byte(content))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start test system: %w", err)
	}
	runLogger.Info("test system started", "command", r.command[0])

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			r.consumeLine(scanner.Bytes(), page, summary)
		}
	}()

	waitErr := make(chan error, 1)
	go func() {
		<-scanDone
		waitErr <- cmd.Wait()
	}()

	timeout := time.NewTimer(runTimeout)
	defer timeout.Stop()

	select {
	case err := <-waitErr:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				runLogger.Warn("test system exited non-zero", "exit_code", exitErr.ExitCode())
				summary.Exceptions++
				r.mon.Log("error", fmt.Sprintf("Test system exited with code %d: %s",
					exitErr.ExitCode(), truncateStderr(stderr.String())), page, "")
				return nil
			}
			return fmt.Errorf("wait for test system: %w", err)
		}
		return nil

	case <-timeout.C:
		runLogger.Warn("test system timed out, sending SIGTERM")
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
		}
		grace := time.NewTimer(terminationGracePeriod)
		defer grace.Stop()
		select {
		case <-waitErr:
			runLogger.Info("test system exited after SIGTERM")
		case <-grace.C:
			runLogger.Warn("test system ignored SIGTERM, sending SIGKILL")
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			<-waitErr
		}
		summary.Status = "timed_out"
		r.mon.Log("error", "Test run timed out", page, "")
		return nil
	}
}

// consumeLine parses one stdout line. Unparseable lines are forwarded to
// the monitor log verbatim.
func (r *Runner) consumeLine(line []byte, page string, summary *Summary) {
	var ev event
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		r.mon.Log("info", string(line), page, "")
		return
	}
	switch ev.Type {
	case "log":
		level := ev.Level
		if level == "" {
			level = "info"
		}
		r.mon.Log(level, ev.Message, page, ev.TestSystem)
	case "result":
		summary.Right += ev.Right
		summary.Wrong += ev.Wrong
		summary.Ignored += ev.Ignored
		summary.Exceptions += ev.Exceptions
	}
}

func truncateStderr(s string) string {
	if len(s) > maxStderrBytes {
		return s[:maxStderrBytes]
	}
	return s
}
