package monitor

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCountersThroughRunLifecycle(t *testing.T) {
	t.Parallel()
	m := New(10)

	m.IncrementQueued()
	snap := m.Snapshot()
	if snap.Queued != 1 || snap.Running != 0 || snap.Completed != 0 {
		t.Fatalf("after queue: %+v", snap)
	}

	start := m.StartRun("SuiteTop")
	snap = m.Snapshot()
	if snap.Queued != 0 || snap.Running != 1 {
		t.Fatalf("after start: %+v", snap)
	}

	m.FinishRun(start, "SuiteTop")
	snap = m.Snapshot()
	if snap.Queued != 0 || snap.Running != 0 || snap.Completed != 1 {
		t.Fatalf("after finish: %+v", snap)
	}
}

func TestAverageMillisZeroWhenNothingCompleted(t *testing.T) {
	t.Parallel()
	m := New(10)
	if got := m.Snapshot().AverageMillis; got != 0 {
		t.Fatalf("average = %d, want 0", got)
	}
}

func TestAverageMillisTracksElapsed(t *testing.T) {
	t.Parallel()
	m := New(10)
	m.IncrementQueued()
	start := m.StartRun("Page")
	m.FinishRun(start.Add(-50*time.Millisecond), "Page")

	if got := m.Snapshot().AverageMillis; got < 50 {
		t.Fatalf("average = %d ms, want >= 50", got)
	}
}

func TestCanAccept(t *testing.T) {
	t.Parallel()
	m := New(10)

	if !m.CanAccept(0) {
		t.Fatal("maxQueue 0 must accept (unlimited)")
	}
	if !m.CanAccept(-1) {
		t.Fatal("negative maxQueue must accept (unlimited)")
	}
	if !m.CanAccept(2) {
		t.Fatal("empty queue must accept")
	}

	m.IncrementQueued()
	m.IncrementQueued()
	if m.CanAccept(2) {
		t.Fatal("full queue must not accept")
	}
	if !m.CanAccept(3) {
		t.Fatal("queue below limit must accept")
	}
}

func TestLogDropsBlankAndTruncatesLong(t *testing.T) {
	t.Parallel()
	m := New(10)

	m.Log("info", "", "", "")
	if entries, _ := m.LogsSince(0, 10); len(entries) != 0 {
		t.Fatalf("blank message logged: %#v", entries)
	}

	m.Log("info", strings.Repeat("x", 3000), "", "")
	entries, _ := m.LogsSince(0, 10)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	msg := entries[0].Message
	if len(msg) != 2000+len("...(truncated)") {
		t.Fatalf("message length = %d", len(msg))
	}
	if !strings.HasSuffix(msg, "...(truncated)") {
		t.Fatalf("message %q lacks truncation suffix", msg[len(msg)-30:])
	}
}

func TestLogsSinceResumesFromLastID(t *testing.T) {
	t.Parallel()
	m := New(10)
	for i := 0; i < 5; i++ {
		m.Log("info", "entry", "", "")
	}

	first, highest := m.LogsSince(0, 2)
	if len(first) != 2 || highest != 5 {
		t.Fatalf("first batch = %d entries, highest = %d", len(first), highest)
	}
	rest, _ := m.LogsSince(first[len(first)-1].ID, 10)
	if len(rest) != 3 {
		t.Fatalf("rest = %d entries, want 3", len(rest))
	}
	if rest[0].ID != first[1].ID+1 {
		t.Fatalf("ids not contiguous: %d after %d", rest[0].ID, first[1].ID)
	}
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	t.Parallel()
	m := New(3)
	for i := 0; i < 5; i++ {
		m.Log("info", "entry", "", "")
	}

	entries, highest := m.LogsSince(0, 10)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].ID != 3 || entries[2].ID != 5 {
		t.Fatalf("ids = %d..%d, want 3..5", entries[0].ID, entries[2].ID)
	}
	if highest != 5 {
		t.Fatalf("highest = %d, want 5", highest)
	}
}

func TestObserverSeesEveryStateChange(t *testing.T) {
	t.Parallel()
	m := New(10)

	var mu sync.Mutex
	var snaps []Snapshot
	m.SetObserver(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	m.IncrementQueued()
	start := m.StartRun("Page")
	m.FinishRun(start, "Page")

	mu.Lock()
	defer mu.Unlock()
	if len(snaps) != 3 {
		t.Fatalf("observer calls = %d, want 3", len(snaps))
	}
	if snaps[0].Queued != 1 || snaps[1].Running != 1 || snaps[2].Completed != 1 {
		t.Fatalf("snapshots = %+v", snaps)
	}
}

func TestConcurrentRunsKeepCountersConsistent(t *testing.T) {
	t.Parallel()
	m := New(100)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementQueued()
			start := m.StartRun("Page")
			m.FinishRun(start, "Page")
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Queued != 0 || snap.Running != 0 || snap.Completed != n {
		t.Fatalf("snapshot = %+v", snap)
	}
}
