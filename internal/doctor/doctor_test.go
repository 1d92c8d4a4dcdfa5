package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/wikigate/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "FitNesseRoot", ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return config.Config{
		Port:           8080,
		RootPath:       root,
		RootDirectory:  "FitNesseRoot",
		TestPoolSize:   2,
		TestMaxQueue:   8,
		MergeStrategy:  "fast-forward",
		RequestTimeout: 30 * time.Second,
		ResultsDB:      filepath.Join(root, ".wikigate", "results.db"),
	}
}

func hasIssue(issues []Issue, category string) bool {
	for _, issue := range issues {
		if issue.Category == category {
			return true
		}
	}
	return false
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := New(validConfig(t)).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_MissingRootPath(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.RootPath = filepath.Join(cfg.RootPath, "does-not-exist")
	r := New(cfg).Validate()
	if r.Valid || !hasIssue(r.Errors, "root") {
		t.Fatalf("expected root error, got %+v", r)
	}
}

func TestValidate_MalformedPolicyIsError(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	dir := filepath.Join(cfg.RootDir(), "TeamPages", ".fitnesse")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "policy.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := New(cfg).Validate()
	if r.Valid || !hasIssue(r.Errors, "policy") {
		t.Fatalf("expected policy error, got %+v", r)
	}
}

func TestValidate_MissingRepoIsWarningOnly(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cfg := validConfig(t)
	if err := os.RemoveAll(filepath.Join(cfg.RootDir(), ".git")); err != nil {
		t.Fatalf("rm: %v", err)
	}
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if !hasIssue(r.Warnings, "repository") {
		t.Fatalf("expected repository warning, got %+v", r.Warnings)
	}
}

func TestValidate_TestSystemNotOnPath(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TestSystemCommand = []string{"no-such-test-system-binary"}
	r := New(cfg).Validate()
	if r.Valid || !hasIssue(r.Errors, "testsystem") {
		t.Fatalf("expected testsystem error, got %+v", r)
	}
}

func TestValidate_NamedTestSystemFound(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	cfg := validConfig(t)
	dir := filepath.Join(cfg.RootPath, "testsystems", "slim")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := "name: slim\nversion: 1.0.0\ncommand: [java, -jar, slim.jar]\n"
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.TestSystemsDir = filepath.Join(cfg.RootPath, "testsystems")
	cfg.TestSystem = "slim"
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_NamedTestSystemMissing(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	if err := os.MkdirAll(filepath.Join(cfg.RootPath, "testsystems"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg.TestSystemsDir = filepath.Join(cfg.RootPath, "testsystems")
	cfg.TestSystem = "fit"
	r := New(cfg).Validate()
	if r.Valid || !hasIssue(r.Errors, "testsystem") {
		t.Fatalf("expected testsystem error, got %+v", r)
	}
}

func TestValidate_UserWithoutPassword(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Users = []config.User{{Name: "alice"}}
	r := New(cfg).Validate()
	if r.Valid || !hasIssue(r.Errors, "users") {
		t.Fatalf("expected users error, got %+v", r)
	}
}
