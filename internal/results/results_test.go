package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestRecordAndQuery(t *testing.T) {
	t.Parallel()
	ix := openTestIndex(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	run := Run{
		ID:          "run-1",
		Page:        "SuiteTop/CaseOne",
		RunType:     "single",
		Status:      "passed",
		Right:       12,
		Wrong:       0,
		StartedAt:   now.Add(-3 * time.Second),
		CompletedAt: now,
		DurationMS:  3000,
		ArtifactDir: "/tmp/artifacts/20250601-100000",
	}
	if err := ix.Record(ctx, run); err != nil {
		t.Fatalf("Record: %v", err)
	}

	runs, err := ix.ForPage(ctx, "SuiteTop/CaseOne", 10)
	if err != nil {
		t.Fatalf("ForPage: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Status != "passed" || got.Right != 12 || got.DurationMS != 3000 {
		t.Fatalf("run = %+v", got)
	}
	if !got.CompletedAt.Equal(now) {
		t.Fatalf("completedAt = %v, want %v", got.CompletedAt, now)
	}
}

func TestForPageNewestFirstAndLimited(t *testing.T) {
	t.Parallel()
	ix := openTestIndex(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		err := ix.Record(ctx, Run{
			ID:          "run-" + string(rune('a'+i)),
			Page:        "SuiteTop",
			RunType:     "suite",
			Status:      "passed",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CompletedAt: base.Add(time.Duration(i)*time.Minute + 5*time.Second),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := ix.ForPage(ctx, "SuiteTop", 2)
	if err != nil {
		t.Fatalf("ForPage: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-d" || runs[1].ID != "run-c" {
		t.Fatalf("order = %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestForPageUnknownPageEmpty(t *testing.T) {
	t.Parallel()
	ix := openTestIndex(t)
	runs, err := ix.ForPage(context.Background(), "NoSuchPage", 10)
	if err != nil {
		t.Fatalf("ForPage: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runs))
	}
}
