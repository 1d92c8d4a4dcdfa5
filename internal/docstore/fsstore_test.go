package docstore

import (
	"sync"
	"testing"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return store
}

func TestFSStoreWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	ref := store.Resolve("FrontPage")

	props := "<properties/>"
	if err := store.WritePage(ref, PageWriteRequest{Content: "hello", PropertiesXML: &props}); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	page, err := store.ReadPage(ref)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if page.Content != "hello" || page.PropertiesXML != "<properties/>" {
		t.Fatalf("page = %#v", page)
	}
}

func TestFSStoreHeadChangesWithContent(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	ref := store.Resolve("FrontPage")

	empty, err := store.Head(ref)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if empty != "" {
		t.Fatalf("head of absent page = %q, want empty", empty)
	}

	if err := store.WritePage(ref, PageWriteRequest{Content: "v1"}); err != nil {
		t.Fatalf("WritePage v1: %v", err)
	}
	h1, err := store.Head(ref)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if h1 == "" {
		t.Fatal("head empty after write")
	}

	if err := store.WritePage(ref, PageWriteRequest{Content: "v2", ExpectedVersion: h1}); err != nil {
		t.Fatalf("WritePage v2: %v", err)
	}
	h2, err := store.Head(ref)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if h1 == h2 {
		t.Fatal("head unchanged after content change")
	}
}

func TestFSStoreStaleVersionConflicts(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	ref := store.Resolve("FrontPage")

	if err := store.WritePage(ref, PageWriteRequest{Content: "base"}); err != nil {
		t.Fatalf("WritePage base: %v", err)
	}
	stale, err := store.Head(ref)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if err := store.WritePage(ref, PageWriteRequest{Content: "A", ExpectedVersion: stale}); err != nil {
		t.Fatalf("WritePage A: %v", err)
	}

	err = store.WritePage(ref, PageWriteRequest{Content: "B", ExpectedVersion: stale})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	page, err := store.ReadPage(ref)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if page.Content != "A" {
		t.Fatalf("content = %q, want A", page.Content)
	}
}

func TestFSStoreHistoryNewestFirst(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	ref := store.Resolve("FrontPage")

	for _, content := range []string{"a", "b", "c"} {
		if err := store.WritePage(ref, PageWriteRequest{Content: content, AuthorName: "tester"}); err != nil {
			t.Fatalf("WritePage %q: %v", content, err)
		}
	}

	history, err := store.History(ref, HistoryQuery{Limit: 2})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history.Entries))
	}
	if history.Entries[0].AuthorName != "tester" {
		t.Fatalf("author = %q", history.Entries[0].AuthorName)
	}
}

func TestFSStoreConcurrentWritersSingleSurvivor(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	ref := store.Resolve("FrontPage")

	if err := store.WritePage(ref, PageWriteRequest{Content: "base"}); err != nil {
		t.Fatalf("WritePage base: %v", err)
	}
	head, err := store.Head(ref)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WritePage(ref, PageWriteRequest{Content: "racer", ExpectedVersion: head})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestFSStoreAttachmentsAndChildren(t *testing.T) {
	t.Parallel()
	store := newTestFSStore(t)
	parent := store.Resolve("SuiteTop")

	if err := store.WritePage(parent, PageWriteRequest{Content: "top"}); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := store.WritePage(parent.Child("CaseOne"), PageWriteRequest{Content: "one"}); err != nil {
		t.Fatalf("WritePage child: %v", err)
	}
	if err := store.WriteAttachment(AttachmentRef{Page: parent, Name: "log.txt"}, []byte("data")); err != nil {
		t.Fatalf("WriteAttachment: %v", err)
	}

	children, err := store.ListChildren(parent)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 1 || children[0].WikiPath != "SuiteTop/CaseOne" {
		t.Fatalf("children = %#v", children)
	}

	got, err := store.ReadAttachment(AttachmentRef{Page: parent, Name: "log.txt"})
	if err != nil {
		t.Fatalf("ReadAttachment: %v", err)
	}
	if string(got) != "data" {
		t.Fatalf("attachment = %q", got)
	}
}
