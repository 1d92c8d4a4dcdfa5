package testsystem

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir, content string) string {
	t.Helper()
	full := filepath.Join(root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(full, "manifest.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return full
}

func TestDiscoverLoadsValidSystems(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeManifest(t, root, "slim", `
name: slim
version: "1.0"
description: Slim table executor
command: [python3, runner.py]
`)
	writeManifest(t, root, "fit", `
name: fit
command: [java, -jar, fit.jar]
`)

	reg, err := Discover(root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("got %d systems, want 2", len(reg.All()))
	}

	slim, ok := reg.Get("slim")
	if !ok {
		t.Fatal("slim not registered")
	}
	if slim.Version != "1.0" {
		t.Fatalf("version = %q, want 1.0", slim.Version)
	}
	if len(slim.Command) != 2 || slim.Command[0] != "python3" {
		t.Fatalf("command = %v", slim.Command)
	}
}

func TestDiscoverSkipsInvalidManifest(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeManifest(t, root, "good", "name: good\ncommand: [sh, run.sh]\n")
	writeManifest(t, root, "noname", "command: [sh]\n")
	writeManifest(t, root, "nocmd", "name: nocmd\n")
	writeManifest(t, root, "badname", "name: Bad Name\ncommand: [sh]\n")

	var warned int
	reg, err := Discover(root, func(level, _ string, _ ...any) {
		if level == "warn" {
			warned++
		}
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("got %d systems, want 1", len(reg.All()))
	}
	if warned != 3 {
		t.Fatalf("warned %d times, want 3", warned)
	}
}

func TestDiscoverDuplicateKeepsFirst(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	first := writeManifest(t, root, "aa-dir", "name: slim\ncommand: [one]\n")
	writeManifest(t, root, "zz-dir", "name: slim\ncommand: [two]\n")

	reg, err := Discover(root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	slim, ok := reg.Get("slim")
	if !ok {
		t.Fatal("slim not registered")
	}
	if slim.Path != first {
		t.Fatalf("kept %q, want first discovered %q", slim.Path, first)
	}
}

func TestDiscoverResolvesRelativeExecutable(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dir := writeManifest(t, root, "local", "name: local\ncommand: [./run.sh, --fast]\n")
	script := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	reg, err := Discover(root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	local, ok := reg.Get("local")
	if !ok {
		t.Fatal("local not registered")
	}
	if local.Command[0] != script {
		t.Fatalf("command[0] = %q, want %q", local.Command[0], script)
	}
}

func TestDiscoverMissingRelativeExecutableSkipped(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeManifest(t, root, "broken", "name: broken\ncommand: [./missing.sh]\n")

	reg, err := Discover(root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, ok := reg.Get("broken"); ok {
		t.Fatal("broken should have been skipped")
	}
}

func TestDiscoverMissingDirFails(t *testing.T) {
	t.Parallel()
	if _, err := Discover(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
