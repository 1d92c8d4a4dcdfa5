package docstore

import (
	"testing"
	"time"
)

func TestNewPageRef(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", RootPage},
		{"/", RootPage},
		{"FrontPage", "FrontPage"},
		{"/Team/Page/", "Team/Page"},
		{"Team\\Page", "Team/Page"},
	}
	for _, tc := range cases {
		if got := NewPageRef(tc.in).WikiPath; got != tc.want {
			t.Errorf("NewPageRef(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPageRefChildAndName(t *testing.T) {
	t.Parallel()
	ref := NewPageRef("Team/Page")
	if got := ref.Name(); got != "Page" {
		t.Fatalf("Name = %q", got)
	}
	if got := ref.Child("Sub").WikiPath; got != "Team/Page/Sub" {
		t.Fatalf("Child = %q", got)
	}
}

func TestParseMergeStrategy(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want MergeStrategy
	}{
		{"", FastForward},
		{"fast-forward", FastForward},
		{"FAST_FORWARD", FastForward},
		{"merge commit", MergeCommit},
		{"merge-commit", MergeCommit},
		{"rebase", Rebase},
		{"squash", Squash},
		{"ours", Ours},
		{"theirs", Theirs},
		{"nonsense", FastForward},
	}
	for _, tc := range cases {
		if got := ParseMergeStrategy(tc.in); got != tc.want {
			t.Errorf("ParseMergeStrategy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseLogLine(t *testing.T) {
	t.Parallel()

	entry, ok := ParseLogLine("abc123|Alice|alice@example.com|2025-06-01T10:00:00Z|wiki: update FrontPage (page)")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if entry.CommitID != "abc123" || entry.AuthorName != "Alice" || entry.AuthorEmail != "alice@example.com" {
		t.Fatalf("entry = %#v", entry)
	}
	if entry.Message != "wiki: update FrontPage (page)" {
		t.Fatalf("message = %q", entry.Message)
	}
	if !entry.Timestamp.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", entry.Timestamp)
	}
}

func TestParseLogLinePipesInMessage(t *testing.T) {
	t.Parallel()
	entry, ok := ParseLogLine("abc|a|a@b|2025-06-01T10:00:00Z|message | with | pipes")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if entry.Message != "message | with | pipes" {
		t.Fatalf("message = %q", entry.Message)
	}
}

func TestParseLogLineBadTimestampFallsBackToEpoch(t *testing.T) {
	t.Parallel()
	entry, ok := ParseLogLine("abc|a|a@b|not-a-time|msg")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if !entry.Timestamp.Equal(time.Unix(0, 0)) {
		t.Fatalf("timestamp = %v, want epoch", entry.Timestamp)
	}
}

func TestParseLogLineTooFewFields(t *testing.T) {
	t.Parallel()
	if _, ok := ParseLogLine("abc|only|three"); ok {
		t.Fatal("expected parse to fail")
	}
	if _, ok := ParseLogLine(""); ok {
		t.Fatal("expected parse to fail on empty line")
	}
}

func TestHistoryQueryLimitDefault(t *testing.T) {
	t.Parallel()
	if got := (HistoryQuery{}).limit(); got != DefaultHistoryLimit {
		t.Fatalf("limit = %d, want %d", got, DefaultHistoryLimit)
	}
	if got := (HistoryQuery{Limit: -3}).limit(); got != DefaultHistoryLimit {
		t.Fatalf("limit = %d, want %d", got, DefaultHistoryLimit)
	}
	if got := (HistoryQuery{Limit: 7}).limit(); got != 7 {
		t.Fatalf("limit = %d, want 7", got)
	}
}

func TestConflictErrorIsConflict(t *testing.T) {
	t.Parallel()
	err := &ConflictError{Path: "FrontPage", Expected: "abc", Strategy: FastForward}
	if !IsConflict(err) {
		t.Fatal("IsConflict = false for ConflictError")
	}
	if IsConflict(nil) {
		t.Fatal("IsConflict(nil) = true")
	}
}
