package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireWritesCurrentPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "wikigate.pid")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.TrimSpace(string(b)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file pid = %q, want %d", got, os.Getpid())
	}
}

func TestAcquireReleaseAcquire(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "wikigate.pid")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("second Acquire after release: %v", err)
	}
	_ = l2.Release()
}

func TestContendedErrorNamesHolderPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "wikigate.pid")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	// flock never contends within one process, so exercise the holder
	// lookup directly against the held file.
	f, err := os.Open(lockPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if got := holderPID(f); got != fmt.Sprintf("%d", os.Getpid()) {
		t.Fatalf("holderPID = %q, want %d", got, os.Getpid())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "wikigate.pid")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
