// Package monitor tracks test-run queue pressure and execution progress.
// The RunMonitor is the only channel through which the UI observes the
// queue, and the only backpressure signal the dispatch layer consults.
package monitor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultCapacity is the log ring size. Oldest entries drop first.
	DefaultCapacity = 2000

	// maxMessageLen bounds a single log message.
	maxMessageLen    = 2000
	truncationSuffix = "...(truncated)"

	// DefaultLogLimit bounds LogsSince calls that don't name a limit.
	DefaultLogLimit = 200
)

// Snapshot is a point-in-time view of the run counters.
type Snapshot struct {
	Queued        int64 `json:"queued"`
	Running       int64 `json:"running"`
	Completed     int64 `json:"completed"`
	AverageMillis int64 `json:"averageMillis"`
}

// LogEntry is one run-log line. IDs increase monotonically for the process
// lifetime so pollers can resume from the last id they saw.
type LogEntry struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Resource   string    `json:"resource,omitempty"`
	TestSystem string    `json:"testSystem,omitempty"`
	At         time.Time `json:"at"`
}

// Observer receives a snapshot after every counter change.
type Observer func(Snapshot)

// RunMonitor holds the run counters and the bounded log ring. Counters are
// atomics; the ring has its own lock.
type RunMonitor struct {
	queued     atomic.Int64
	running    atomic.Int64
	completed  atomic.Int64
	totalNanos atomic.Int64

	nextID atomic.Int64

	mu    sync.Mutex
	ring  []LogEntry
	start int
	size  int

	obsMu    sync.RWMutex
	observer Observer
}

// New creates a monitor whose log ring holds capacity entries.
func New(capacity int) *RunMonitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RunMonitor{ring: make([]LogEntry, capacity)}
}

// SetObserver registers the callback invoked with a snapshot on every
// counter change. Passing nil removes it.
func (m *RunMonitor) SetObserver(obs Observer) {
	m.obsMu.Lock()
	m.observer = obs
	m.obsMu.Unlock()
}

// CanAccept reports whether another run may be queued. maxQueue <= 0 means
// unlimited. Callers must check before IncrementQueued.
func (m *RunMonitor) CanAccept(maxQueue int) bool {
	return maxQueue <= 0 || m.queued.Load() < int64(maxQueue)
}

// IncrementQueued records that a run entered the queue.
func (m *RunMonitor) IncrementQueued() {
	m.queued.Add(1)
	m.publish()
}

// StartRun records that a queued run began executing and returns its start
// time for FinishRun.
func (m *RunMonitor) StartRun(resource string) time.Time {
	m.queued.Add(-1)
	m.running.Add(1)
	m.Log("info", "Run started", resource, "")
	m.publish()
	return time.Now()
}

// FinishRun records a run's completion and folds its elapsed time into the
// running average.
func (m *RunMonitor) FinishRun(start time.Time, resource string) {
	elapsed := time.Since(start)
	m.running.Add(-1)
	m.completed.Add(1)
	m.totalNanos.Add(elapsed.Nanoseconds())
	m.Log("info", fmt.Sprintf("Run finished in %d ms", elapsed.Milliseconds()), resource, "")
	m.publish()
}

// Snapshot returns the current counters.
func (m *RunMonitor) Snapshot() Snapshot {
	completed := m.completed.Load()
	var avg int64
	if completed > 0 {
		avg = m.totalNanos.Load() / completed / 1_000_000
	}
	return Snapshot{
		Queued:        m.queued.Load(),
		Running:       m.running.Load(),
		Completed:     m.completed.Load(),
		AverageMillis: avg,
	}
}

// Log appends one entry to the ring. Blank messages are dropped; messages
// over the length cap are truncated.
func (m *RunMonitor) Log(level, message, resource, testSystem string) {
	if message == "" {
		return
	}
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen] + truncationSuffix
	}

	entry := LogEntry{
		ID:         m.nextID.Add(1),
		Level:      level,
		Message:    message,
		Resource:   resource,
		TestSystem: testSystem,
		At:         time.Now().UTC(),
	}

	m.mu.Lock()
	m.pushLocked(entry)
	m.mu.Unlock()
}

// LogsSince returns up to limit entries with id > lastID, oldest-first, and
// the highest id assigned so far. limit <= 0 applies the default.
func (m *RunMonitor) LogsSince(lastID int64, limit int) ([]LogEntry, int64) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	highest := m.nextID.Load()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LogEntry, 0, min(limit, m.size))
	for i := 0; i < m.size && len(out) < limit; i++ {
		entry := m.ring[(m.start+i)%len(m.ring)]
		if entry.ID > lastID {
			out = append(out, entry)
		}
	}
	return out, highest
}

func (m *RunMonitor) pushLocked(entry LogEntry) {
	capacity := len(m.ring)
	if capacity == 0 {
		return
	}
	if m.size < capacity {
		m.ring[(m.start+m.size)%capacity] = entry
		m.size++
		return
	}
	// Overwrite oldest.
	m.ring[m.start] = entry
	m.start = (m.start + 1) % capacity
}

func (m *RunMonitor) publish() {
	m.obsMu.RLock()
	obs := m.observer
	m.obsMu.RUnlock()
	if obs != nil {
		obs(m.Snapshot())
	}
}
