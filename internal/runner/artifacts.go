package runner

import (
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// artifactTimestampLayout names the artifact directory after the run's
// completion time.
const artifactTimestampLayout = "20060102-150405"

type junitTestsuite struct {
	XMLName  xml.Name `xml:"testsuite"`
	Name     string   `xml:"name,attr"`
	Tests    int      `xml:"tests,attr"`
	Failures int      `xml:"failures,attr"`
	Errors   int      `xml:"errors,attr"`
	Skipped  int      `xml:"skipped,attr"`
	Time     string   `xml:"time,attr"`
}

// writeArtifacts persists junit.xml and report.html for a finished run and
// returns the directory they live in.
func writeArtifacts(historyDir string, summary Summary, completed time.Time) (string, error) {
	dir := filepath.Join(historyDir,
		filepath.FromSlash(summary.Page),
		"artifacts",
		completed.UTC().Format(artifactTimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	junit, err := junitXML(summary)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "junit.xml"), junit, 0o644); err != nil {
		return "", fmt.Errorf("write junit.xml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.html"), reportHTML(summary), 0o644); err != nil {
		return "", fmt.Errorf("write report.html: %w", err)
	}
	return dir, nil
}

func junitXML(summary Summary) ([]byte, error) {
	suite := junitTestsuite{
		Name:     summary.Page,
		Tests:    summary.Right + summary.Wrong + summary.Ignored + summary.Exceptions,
		Failures: summary.Wrong,
		Errors:   summary.Exceptions,
		Skipped:  summary.Ignored,
		Time:     fmt.Sprintf("%.3f", float64(summary.DurationMS)/1000),
	}
	out, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal junit: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func reportHTML(summary Summary) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>")
	b.WriteString(html.EscapeString(summary.Page))
	b.WriteString("</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(summary.Page))
	fmt.Fprintf(&b, "<p class=%q>%s</p>\n", "status-"+summary.Status, html.EscapeString(summary.Status))
	fmt.Fprintf(&b, "<ul><li>right: %d</li><li>wrong: %d</li><li>ignored: %d</li><li>exceptions: %d</li><li>duration: %d ms</li></ul>\n",
		summary.Right, summary.Wrong, summary.Ignored, summary.Exceptions, summary.DurationMS)
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}
