package watch

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchFailuresNameTheirPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	msg := fetchLogs(srv.URL, 0)()
	e, ok := msg.(errMsg)
	if !ok {
		t.Fatalf("fetchLogs returned %T, want errMsg", msg)
	}
	if e.kind != pollLogs {
		t.Fatalf("kind = %d, want pollLogs", e.kind)
	}

	msg = fetchSnapshot(srv.URL)()
	e, ok = msg.(errMsg)
	if !ok {
		t.Fatalf("fetchSnapshot returned %T, want errMsg", msg)
	}
	if e.kind != pollSnapshot {
		t.Fatalf("kind = %d, want pollSnapshot", e.kind)
	}
}

func TestModelRestartsFailedPoll(t *testing.T) {
	m := New("http://localhost:0", 0)
	m.since = 7

	updated, cmd := m.Update(errMsg{pollLogs, http.ErrServerClosed})
	if cmd == nil {
		t.Fatal("expected a retry command for the failed poll")
	}
	got := updated.(Model)
	if got.connected {
		t.Fatal("model still marked connected after error")
	}
	if got.lastError == "" {
		t.Fatal("error not surfaced")
	}
	if got.since != 7 {
		t.Fatalf("since = %d, want 7 (resume point kept)", got.since)
	}
}
