// Package search walks the wiki tree matching titles or content. Matching
// is case-insensitive and literal; there is no index, a query scans the
// tree and pages through results by offset.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/wikigate/internal/docstore"
	"github.com/mattjoyce/wikigate/internal/log"
)

const (
	// DefaultLimit bounds queries that don't name one.
	DefaultLimit = 50

	// DefaultTTL is the query cache lifetime.
	DefaultTTL = 2 * time.Second

	snippetWindow = 80
	snippetLead   = 200
)

// Mode selects what a query matches against.
type Mode string

const (
	ModeTitle   Mode = "title"
	ModeContent Mode = "content"
)

// ParseMode accepts the current and legacy spellings. Unknown values fall
// back to title search.
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "content", "contents":
		return ModeContent
	default:
		return ModeTitle
	}
}

// Query is one search request.
type Query struct {
	Text     string
	Mode     Mode
	Tags     []string
	PageType string // any, suite, test
	Limit    int
	Offset   int
}

// Result is one matching page.
type Result struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// Service scans the store. It is stateless apart from a short-lived query
// cache.
type Service struct {
	store  docstore.Store
	logger *slog.Logger

	ttl     time.Duration
	cacheMu sync.Mutex
	cache   map[string]cachedResults
}

type cachedResults struct {
	results []Result
	expires time.Time
}

// New creates the service. ttl <= 0 applies the default.
func New(store docstore.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:  store,
		logger: log.WithComponent("search"),
		ttl:    ttl,
		cache:  make(map[string]cachedResults),
	}
}

// Search runs a query over the whole tree.
func (s *Service) Search(q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.PageType == "" {
		q.PageType = "any"
	}

	key := cacheKey(q)
	s.cacheMu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expires) {
		s.cacheMu.Unlock()
		return entry.results, nil
	}
	s.cacheMu.Unlock()

	needle := strings.ToLower(q.Text)
	var results []Result
	skipped := 0

	done := false
	visit := func(ref docstore.PageRef, page docstore.Page) bool {
		if done {
			return false
		}
		if !s.matches(ref, page, q, needle) {
			return true
		}
		if skipped < q.Offset {
			skipped++
			return true
		}
		results = append(results, Result{Path: ref.WikiPath, Snippet: snippet(page.Content, needle)})
		done = len(results) >= q.Limit
		return !done
	}

	roots, err := s.store.TopLevel()
	if err != nil {
		return nil, err
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].WikiPath < roots[j].WikiPath })
	for _, root := range roots {
		if err := s.walk(root, visit); err != nil {
			return nil, err
		}
		if len(results) >= q.Limit {
			break
		}
	}

	s.cacheMu.Lock()
	s.cache[key] = cachedResults{results: results, expires: time.Now().Add(s.ttl)}
	s.cacheMu.Unlock()
	return results, nil
}

// walk visits pages depth-first in sorted order. visit returns false to
// stop early.
func (s *Service) walk(ref docstore.PageRef, visit func(docstore.PageRef, docstore.Page) bool) error {
	page, err := s.store.ReadPage(ref)
	if err != nil {
		return err
	}
	if !visit(ref, page) {
		return nil
	}
	children, err := s.store.ListChildren(ref)
	if err != nil {
		return err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].WikiPath < children[j].WikiPath })
	for _, child := range children {
		if err := s.walk(child, visit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) matches(ref docstore.PageRef, page docstore.Page, q Query, needle string) bool {
	if page.Content == "" && page.PropertiesXML == "" {
		return false
	}

	switch q.Mode {
	case ModeContent:
		if !strings.Contains(strings.ToLower(page.Content), needle) {
			return false
		}
	default:
		if !strings.Contains(strings.ToLower(ref.Name()), needle) {
			return false
		}
	}

	if q.PageType != "any" && pageType(page.PropertiesXML) != q.PageType {
		return false
	}
	if len(q.Tags) > 0 && !hasAllTags(page.PropertiesXML, q.Tags) {
		return false
	}
	return true
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		q.Mode, strings.ToLower(q.Text), strings.ToLower(strings.Join(q.Tags, ",")),
		q.PageType, q.Limit, q.Offset)
}

// pageType reads the Suite/Test markers from the properties XML.
func pageType(propertiesXML string) string {
	switch {
	case strings.Contains(propertiesXML, "<Suite/>") || strings.Contains(propertiesXML, "<Suite>"):
		return "suite"
	case strings.Contains(propertiesXML, "<Test/>") || strings.Contains(propertiesXML, "<Test>"):
		return "test"
	default:
		return "static"
	}
}

// hasAllTags intersects the wanted tags against the page's comma-separated
// Suites property. All wanted tags must be present.
func hasAllTags(propertiesXML string, wanted []string) bool {
	have := make(map[string]struct{})
	for _, tag := range strings.Split(suitesProperty(propertiesXML), ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			have[tag] = struct{}{}
		}
	}
	for _, tag := range wanted {
		if _, ok := have[strings.ToLower(strings.TrimSpace(tag))]; !ok {
			return false
		}
	}
	return true
}

func suitesProperty(propertiesXML string) string {
	start := strings.Index(propertiesXML, "<Suites>")
	if start < 0 {
		return ""
	}
	rest := propertiesXML[start+len("<Suites>"):]
	end := strings.Index(rest, "</Suites>")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// snippet extracts a window around the first content match, or the page's
// lead when the match was on the title.
func snippet(content, needle string) string {
	if content == "" {
		return ""
	}
	idx := -1
	if needle != "" {
		idx = strings.Index(strings.ToLower(content), needle)
	}
	if idx < 0 {
		if len(content) > snippetLead {
			return content[:snippetLead]
		}
		return content
	}

	start := idx - snippetWindow
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + snippetWindow
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}
