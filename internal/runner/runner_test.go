package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/wikigate/internal/monitor"
)

func writeScript(t *testing.T, body string) []string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	path := filepath.Join(t.TempDir(), "testsystem.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return []string{"sh", path}
}

func TestRunNoCommandIsEmptyPass(t *testing.T) {
	t.Parallel()
	mon := monitor.New(10)
	r := New(nil, t.TempDir(), mon)

	summary, err := r.Run(context.Background(), "single", "FrontPage", "content")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != "passed" || summary.Right != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("missing run id")
	}
}

func TestRunCollectsResultsAndForwardsLogs(t *testing.T) {
	t.Parallel()
	mon := monitor.New(10)
	cmd := writeScript(t, `
cat > /dev/null
echo '{"type":"log","level":"info","message":"suite setup","testSystem":"slim"}'
echo '{"type":"result","right":3,"wrong":1,"ignored":2}'
echo '{"type":"result","right":2,"exceptions":0}'
`)
	r := New(cmd, t.TempDir(), mon)

	summary, err := r.Run(context.Background(), "suite", "SuiteTop", "page content")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Right != 5 || summary.Wrong != 1 || summary.Ignored != 2 {
		t.Fatalf("counts = %+v", summary)
	}
	if summary.Status != "failed" {
		t.Fatalf("status = %q, want failed", summary.Status)
	}

	entries, _ := mon.LogsSince(0, 100)
	found := false
	for _, e := range entries {
		if e.Message == "suite setup" && e.TestSystem == "slim" {
			found = true
		}
	}
	if !found {
		t.Fatalf("log event not forwarded: %#v", entries)
	}
}

func TestRunFeedsContentOnStdin(t *testing.T) {
	t.Parallel()
	mon := monitor.New(10)
	cmd := writeScript(t, `
content=$(cat)
echo "$content"
echo '{"type":"result","right":1}'
`)
	r := New(cmd, t.TempDir(), mon)

	if _, err := r.Run(context.Background(), "single", "Page", "!define TEST_SYSTEM slim"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, _ := mon.LogsSince(0, 100)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Message, "!define TEST_SYSTEM slim") {
			found = true
		}
	}
	if !found {
		t.Fatal("stdin content never echoed back through the log")
	}
}

func TestRunNonZeroExitCountsAsException(t *testing.T) {
	t.Parallel()
	mon := monitor.New(10)
	cmd := writeScript(t, `
cat > /dev/null
echo "boom" >&2
exit 3
`)
	r := New(cmd, t.TempDir(), mon)

	summary, err := r.Run(context.Background(), "single", "Page", "content")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != "error" || summary.Exceptions != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	entries, _ := mon.LogsSince(0, 100)
	found := false
	for _, e := range entries {
		if strings.Contains(e.Message, "exited with code 3") && strings.Contains(e.Message, "boom") {
			found = true
		}
	}
	if !found {
		t.Fatalf("exit not logged: %#v", entries)
	}
}

func TestRunUnparseableLinesForwardedVerbatim(t *testing.T) {
	t.Parallel()
	mon := monitor.New(10)
	cmd := writeScript(t, `
cat > /dev/null
echo "plain progress line"
echo '{"type":"result","right":1}'
`)
	r := New(cmd, t.TempDir(), mon)

	summary, err := r.Run(context.Background(), "single", "Page", "content")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Right != 1 {
		t.Fatalf("right = %d", summary.Right)
	}

	entries, _ := mon.LogsSince(0, 100)
	found := false
	for _, e := range entries {
		if e.Message == "plain progress line" {
			found = true
		}
	}
	if !found {
		t.Fatalf("raw line not forwarded: %#v", entries)
	}
}
