// Package testsystem discovers external test-system executors. A test
// system is a child process speaking the line-delimited JSON run protocol;
// each lives in its own directory with a manifest.yaml describing how to
// invoke it.
package testsystem

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Manifest is the structure of a test system's manifest.yaml file.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Command     []string `yaml:"command"`
}

// TestSystem is a discovered and validated executor.
type TestSystem struct {
	Name        string   // from the manifest
	Path        string   // absolute directory holding the manifest
	Version     string
	Description string
	Command     []string // argv; relative executables resolved against Path
}

func validateManifest(m *Manifest) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("name %q contains invalid character %q (allowed: a-z, 0-9, -, _)", name, c)
		}
	}
	if len(m.Command) == 0 {
		return fmt.Errorf("command is required")
	}
	if strings.TrimSpace(m.Command[0]) == "" {
		return fmt.Errorf("command executable is empty")
	}
	return nil
}

// resolveCommand makes a relative executable path absolute against the
// system's directory. Bare names stay as-is for PATH lookup at run time.
func resolveCommand(command []string, dir string) []string {
	out := append([]string(nil), command...)
	exe := out[0]
	if strings.ContainsRune(exe, filepath.Separator) && !filepath.IsAbs(exe) {
		out[0] = filepath.Join(dir, exe)
	}
	return out
}
