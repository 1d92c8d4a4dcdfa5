// Package doctor validates a wikigate installation before the server starts.
package doctor

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mattjoyce/wikigate/internal/config"
	"github.com/mattjoyce/wikigate/internal/testsystem"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the filesystem.
type Doctor struct {
	cfg config.Config
}

// New creates a Doctor for a loaded config.
func New(cfg config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkGit(r)
	d.checkRoot(r)
	d.checkRepository(r)
	d.checkPolicies(r)
	d.checkResultsDB(r)
	d.checkTestSystem(r)
	d.checkUsers(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) checkGit(r *Result) {
	if _, err := exec.LookPath("git"); err != nil {
		d.addError(r, "git", "", "git not found on PATH; the versioned page store needs it")
	}
}

func (d *Doctor) checkRoot(r *Result) {
	info, err := os.Stat(d.cfg.RootPath)
	if err != nil {
		d.addError(r, "root", "rootPath", fmt.Sprintf("root path %q not accessible: %v", d.cfg.RootPath, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "root", "rootPath", fmt.Sprintf("root path %q is not a directory", d.cfg.RootPath))
		return
	}

	probe := filepath.Join(d.cfg.RootPath, ".wikigate-doctor-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		d.addError(r, "root", "rootPath", fmt.Sprintf("root path %q not writable: %v", d.cfg.RootPath, err))
		return
	}
	os.Remove(probe)

	if _, err := os.Stat(d.cfg.RootDir()); err != nil {
		d.addWarning(r, "root", "rootDirectory",
			fmt.Sprintf("wiki root %q does not exist yet; it will be created on first start", d.cfg.RootDir()))
	}
}

func (d *Doctor) checkRepository(r *Result) {
	gitDir := filepath.Join(d.cfg.RootDir(), ".git")
	if _, err := os.Stat(gitDir); err != nil {
		d.addWarning(r, "repository", "rootDirectory",
			"wiki root is not a git repository yet; it will be initialised on first start")
	}
}

// checkPolicies parses every .fitnesse/policy.json under the wiki root.
// Malformed files degrade to allow-all at runtime, so they are errors here
// where an operator can still fix them.
func (d *Doctor) checkPolicies(r *Result) {
	root := d.cfg.RootDir()
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || entry.Name() != "policy.json" {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) != ".fitnesse" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			d.addError(r, "policy", path, fmt.Sprintf("cannot read policy: %v", err))
			return nil
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			d.addError(r, "policy", path,
				fmt.Sprintf("malformed policy (would degrade to allow-all): %v", err))
		}
		return nil
	})
}

func (d *Doctor) checkResultsDB(r *Result) {
	dir := filepath.Dir(d.cfg.ResultsDB)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.addError(r, "results", "resultsDB",
			fmt.Sprintf("cannot create results directory %q: %v", dir, err))
	}
}

func (d *Doctor) checkTestSystem(r *Result) {
	if len(d.cfg.TestSystemCommand) > 0 {
		if _, err := exec.LookPath(d.cfg.TestSystemCommand[0]); err != nil {
			d.addError(r, "testsystem", "testSystemCommand",
				fmt.Sprintf("test system %q not found on PATH", d.cfg.TestSystemCommand[0]))
		}
		return
	}
	if d.cfg.TestSystemsDir != "" && d.cfg.TestSystem != "" {
		reg, err := testsystem.Discover(d.cfg.TestSystemsDir, nil)
		if err != nil {
			d.addError(r, "testsystem", "testSystemsDir",
				fmt.Sprintf("cannot discover test systems: %v", err))
			return
		}
		if _, ok := reg.Get(d.cfg.TestSystem); !ok {
			d.addError(r, "testsystem", "testSystem",
				fmt.Sprintf("test system %q not found under %q", d.cfg.TestSystem, d.cfg.TestSystemsDir))
		}
		return
	}
	d.addWarning(r, "testsystem", "testSystemCommand",
		"no test system command configured; runs will report empty passes")
}

func (d *Doctor) checkUsers(r *Result) {
	for i, u := range d.cfg.Users {
		if u.Name == "" {
			d.addError(r, "users", fmt.Sprintf("users[%d].name", i), "user name is required")
		}
		if u.Password == "" {
			d.addError(r, "users", fmt.Sprintf("users[%d].password", i),
				fmt.Sprintf("user %q has no password", u.Name))
		}
	}
	if d.cfg.AuthEnabled && len(d.cfg.Users) == 0 {
		d.addWarning(r, "users", "users",
			"auth enabled but no users configured; auth-required pages will reject everyone")
	}
}
