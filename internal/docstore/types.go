package docstore

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RootPage is the page an empty wiki path resolves to.
const RootPage = "FrontPage"

// PageRef locates a wiki page by its slash-separated path. It has no
// identity beyond the path.
type PageRef struct {
	WikiPath string
}

// NewPageRef normalizes a wiki path into a ref. Empty paths map to the root.
func NewPageRef(wikiPath string) PageRef {
	p := strings.Trim(strings.ReplaceAll(wikiPath, "\\", "/"), "/")
	if p == "" {
		p = RootPage
	}
	return PageRef{WikiPath: p}
}

// Name is the last path segment.
func (r PageRef) Name() string {
	if i := strings.LastIndex(r.WikiPath, "/"); i >= 0 {
		return r.WikiPath[i+1:]
	}
	return r.WikiPath
}

// Child returns the ref for a direct child page.
func (r PageRef) Child(name string) PageRef {
	if r.WikiPath == "" {
		return PageRef{WikiPath: name}
	}
	return PageRef{WikiPath: r.WikiPath + "/" + name}
}

// Page is the content and XML-encoded properties of a wiki page. Missing
// files read as empty strings; absence is not an error.
type Page struct {
	Ref           PageRef
	Content       string
	PropertiesXML string
}

// PageProperties wraps the properties.xml payload of a page.
type PageProperties struct {
	XML string
}

// AttachmentRef locates a binary attachment under a page's files/ directory.
type AttachmentRef struct {
	Page PageRef
	Name string
}

// PageWriteRequest carries one write. ExpectedVersion, when non-empty, is an
// optimistic-concurrency token compared against the store head; PropertiesXML
// is written only when non-nil.
type PageWriteRequest struct {
	Content         string
	PropertiesXML   *string
	ExpectedVersion string
	AuthorName      string
	AuthorEmail     string
}

// PageHistoryEntry is one recorded version of a page.
type PageHistoryEntry struct {
	CommitID    string    `json:"commitId"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// PageHistory is the ordered version list, newest first.
type PageHistory struct {
	Entries []PageHistoryEntry
}

// DefaultHistoryLimit bounds history queries that don't name a limit.
const DefaultHistoryLimit = 50

// HistoryQuery bounds a history read.
type HistoryQuery struct {
	Limit int
}

func (q HistoryQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultHistoryLimit
	}
	return q.Limit
}

// MergeStrategy selects how a write against a stale expected version is
// reconciled with the current head. The set is closed; strategies are not
// pluggable at runtime.
type MergeStrategy int

const (
	FastForward MergeStrategy = iota
	MergeCommit
	Rebase
	Squash
	Ours
	Theirs
)

// ParseMergeStrategy maps a configuration string onto a strategy. Unknown or
// empty values fall back to fast-forward.
func ParseMergeStrategy(raw string) MergeStrategy {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	switch normalized {
	case "merge-commit":
		return MergeCommit
	case "rebase":
		return Rebase
	case "squash":
		return Squash
	case "ours":
		return Ours
	case "theirs":
		return Theirs
	default:
		return FastForward
	}
}

func (m MergeStrategy) String() string {
	switch m {
	case MergeCommit:
		return "merge-commit"
	case Rebase:
		return "rebase"
	case Squash:
		return "squash"
	case Ours:
		return "ours"
	case Theirs:
		return "theirs"
	default:
		return "fast-forward"
	}
}

// ConflictError reports a write whose expected version trails head and whose
// merge could not be resolved automatically. Clients may retry with a fresh
// head.
type ConflictError struct {
	Path     string
	Expected string
	Strategy MergeStrategy
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict writing %s: expected %s (%s)", e.Path, e.Expected, e.Strategy)
}

// IsConflict reports whether err is a write conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Store is the page-store contract shared by the plain filesystem and the
// version-controlled implementations.
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mattjoyce/wikigate/internal/docstore Store

type Store interface {
	Resolve(wikiPath string) PageRef
	ReadPage(ref PageRef) (Page, error)
	WritePage(ref PageRef, req PageWriteRequest) error
	ListChildren(ref PageRef) ([]PageRef, error)

	// TopLevel lists the pages at the root of the wiki tree. The root page
	// is one of them, not their parent.
	TopLevel() ([]PageRef, error)
	ReadProperties(ref PageRef) (PageProperties, error)
	WriteProperties(ref PageRef, props PageProperties) error
	ListAttachments(ref PageRef) ([]AttachmentRef, error)
	ReadAttachment(ref AttachmentRef) ([]byte, error)
	WriteAttachment(ref AttachmentRef, data []byte) error
	History(ref PageRef, q HistoryQuery) (PageHistory, error)

	// Head returns the version token a writer should present as
	// ExpectedVersion. The git store returns the repository HEAD and ignores
	// ref; the filesystem store hashes the named page.
	Head(ref PageRef) (string, error)
}
