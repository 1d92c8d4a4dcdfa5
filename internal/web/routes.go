package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/identity"
	"github.com/mattjoyce/wikigate/internal/search"
)

// reservedRoots are top-level path segments that never redirect to a wiki
// page.
var reservedRoots = map[string]bool{
	"files":       true,
	"search":      true,
	"history":     true,
	"diff":        true,
	"results":     true,
	"api":         true,
	"run":         true,
	"run-monitor": true,
	"eventbus":    true,
	"metrics":     true,
	"favicon.ico": true,
}

func contextRootFor(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return "/api"
	}
	return ""
}

func isAPI(r *http.Request) bool {
	return contextRootFor(r) == "/api"
}

// dispatch sends the request through the bus and relays the reply. Bus-level
// failures keep their status code; anything else is a 500.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, addr, resource string, timeout time.Duration) {
	env, err := buildEnvelope(r, resource, contextRootFor(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.dispatchEnvelope(w, r, addr, env, timeout)
}

func (s *Server) dispatchEnvelope(w http.ResponseWriter, r *http.Request, addr string, env bus.Envelope, timeout time.Duration) {
	resp, err := s.bus.Request(r.Context(), addr, env, timeout)
	if err != nil {
		var sendErr *bus.SendError
		if errors.As(err, &sendErr) {
			http.Error(w, sendErr.Message, sendErr.Code)
			return
		}
		s.logger.Error("dispatch failed", "address", addr, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := writeResponse(w, resp); err != nil {
		s.logger.Error("write response failed", "address", addr, "error", err)
	}
}

func (s *Server) handleWikiGet(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "*")
	q := r.URL.Query()

	switch {
	case q.Has("suite"):
		s.dispatch(w, r, bus.AddrTestSuite, page, bus.TestSendTimeout)
	case q.Has("test"):
		s.dispatch(w, r, bus.AddrTestSingle, page, bus.TestSendTimeout)
	case q.Has("edit"):
		s.dispatch(w, r, bus.AddrPageEdit, page, s.requestTimeout)
	case strings.HasSuffix(page, "/edit"):
		s.dispatch(w, r, bus.AddrPageEdit, strings.TrimSuffix(page, "/edit"), s.requestTimeout)
	default:
		s.dispatch(w, r, bus.AddrPageView, page, s.requestTimeout)
	}
}

func (s *Server) handleWikiPost(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "*")
	if strings.HasSuffix(page, "/attachments") {
		s.dispatch(w, r, bus.AddrPageAttachments, strings.TrimSuffix(page, "/attachments"), s.requestTimeout)
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.dispatch(w, r, bus.AddrPageAttachments, page, s.requestTimeout)
		return
	}
	s.dispatch(w, r, bus.AddrPageSave, page, s.requestTimeout)
}

// handleRun is the CI entry point: the reply is always junit XML with the
// html report kept alongside the artifacts.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr := bus.AddrTestSuite
	page := q.Get("suite")
	if page == "" {
		page = q.Get("test")
		addr = bus.AddrTestSingle
	}
	if page == "" {
		http.Error(w, "missing suite or test parameter", http.StatusBadRequest)
		return
	}

	env, err := buildEnvelope(r, page, contextRootFor(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env.Params["format"] = []string{"junit"}
	env.Params["includehtml"] = []string{"true"}
	s.dispatchEnvelope(w, r, addr, env, bus.TestSendTimeout)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, bus.AddrResults, chi.URLParam(r, "*"), s.requestTimeout)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history requires the git page store", http.StatusNotFound)
		return
	}
	page := chi.URLParam(r, "*")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hist, err := s.history.History(page, limit)
	if err != nil {
		s.logger.Error("history lookup failed", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if isAPI(r) {
		writeJSON(w, http.StatusOK, map[string]any{"path": page, "entries": hist.Entries})
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html><head><title>History of %s</title></head><body>\n", html.EscapeString(page))
	fmt.Fprintf(&b, "<h1>History of %s</h1>\n<table>\n", html.EscapeString(page))
	b.WriteString("<tr><th>commit</th><th>author</th><th>when</th><th>message</th></tr>\n")
	for _, e := range hist.Entries {
		fmt.Fprintf(&b, "<tr><td><a href=\"/diff/%s?commitId=%s\">%s</a></td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			page, e.CommitID, html.EscapeString(shortCommit(e.CommitID)),
			html.EscapeString(e.AuthorName),
			e.Timestamp.Format("2006-01-02 15:04:05"),
			html.EscapeString(e.Message))
	}
	b.WriteString("</table>\n</body></html>\n")
	writeHTML(w, http.StatusOK, b.String())
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history requires the git page store", http.StatusNotFound)
		return
	}
	page := chi.URLParam(r, "*")
	commit := commitParam(r)
	if commit == "" {
		http.Error(w, "missing commitId parameter", http.StatusBadRequest)
		return
	}

	d, err := s.history.Diff(page, commit)
	if err != nil {
		s.logger.Error("diff failed", "page", page, "commit", commit, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if isAPI(r) {
		writeJSON(w, http.StatusOK, d)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html><head><title>Diff %s @ %s</title></head><body>\n",
		html.EscapeString(page), html.EscapeString(shortCommit(commit)))
	fmt.Fprintf(&b, "<h1>%s at %s</h1>\n", html.EscapeString(page), html.EscapeString(shortCommit(commit)))
	fmt.Fprintf(&b, "<p>%d files, +%d -%d</p>\n", d.Stat.Files, d.Stat.Added, d.Stat.Deleted)
	fmt.Fprintf(&b, "<pre>%s</pre>\n</body></html>\n", html.EscapeString(d.Unified))
	writeHTML(w, http.StatusOK, b.String())
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history requires the git page store", http.StatusNotFound)
		return
	}
	page := chi.URLParam(r, "*")
	commit := commitParam(r)
	if commit == "" {
		http.Error(w, "missing commitId parameter", http.StatusBadRequest)
		return
	}

	id, _ := identity.FromContext(r.Context())
	if err := s.history.Revert(page, commit, id.Name, id.Email); err != nil {
		s.logger.Error("revert failed", "page", page, "commit", commit, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if isAPI(r) {
		writeJSON(w, http.StatusOK, map[string]string{"path": page, "revertedTo": commit})
		return
	}
	http.Redirect(w, r, "/wiki/"+page, http.StatusFound)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()

	text := qv.Get("q")
	mode := qv.Get("type")
	// pre-router clients send searchString/searchType
	if text == "" {
		text = qv.Get("searchString")
	}
	if mode == "" {
		mode = qv.Get("searchType")
	}
	tags := splitTags(qv.Get("tags"))
	pageType := qv.Get("pageType")
	offset, _ := strconv.Atoi(qv.Get("offset"))
	limit, _ := strconv.Atoi(qv.Get("limit"))

	if text == "" && len(tags) == 0 && pageType == "" {
		if isAPI(r) {
			writeJSON(w, http.StatusOK, map[string]any{"results": []search.Result{}})
			return
		}
		writeHTML(w, http.StatusOK, searchFormHTML)
		return
	}

	results, err := s.search.Search(search.Query{
		Text:     text,
		Mode:     search.ParseMode(mode),
		Tags:     tags,
		PageType: pageType,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("search failed", "text", text, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if isAPI(r) {
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html><head><title>Search</title></head><body>\n<h1>%d results</h1>\n<ul>\n", len(results))
	for _, res := range results {
		fmt.Fprintf(&b, "<li><a href=\"/wiki/%s\">%s</a>: %s</li>\n",
			res.Path, html.EscapeString(res.Path), html.EscapeString(res.Snippet))
	}
	b.WriteString("</ul>\n</body></html>\n")
	writeHTML(w, http.StatusOK, b.String())
}

func (s *Server) handleRunMonitor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

func (s *Server) handleRunMonitorLogs(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, last := s.monitor.LogsSince(since, limit)
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "last": last})
}

// handleLegacyRedirect maps bare FitNesse-style page URLs onto /wiki/. Dots
// separate parent and child pages in the old scheme.
func (s *Server) handleLegacyRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.Trim(r.URL.Path, "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}
	root := path
	if i := strings.IndexAny(root, "/."); i >= 0 {
		root = root[:i]
	}
	if reservedRoots[strings.ToLower(root)] {
		http.NotFound(w, r)
		return
	}
	first, _ := firstRune(root)
	if !unicode.IsUpper(first) {
		http.NotFound(w, r)
		return
	}
	target := "/wiki/" + strings.ReplaceAll(path, ".", "/")
	http.Redirect(w, r, target, http.StatusFound)
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

// commitParam reads the commit id from the query. "commit" is accepted as a
// shorthand for "commitId".
func commitParam(r *http.Request) string {
	if v := r.URL.Query().Get("commitId"); v != "" {
		return v
	}
	return r.URL.Query().Get("commit")
}

func shortCommit(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const searchFormHTML = `<!DOCTYPE html>
<html><head><title>Search</title></head><body>
<h1>Search</h1>
<form method="get" action="/search">
<input type="text" name="q" placeholder="search text">
<select name="type">
<option value="content">content</option>
<option value="title">title</option>
</select>
<input type="text" name="tags" placeholder="tags, comma separated">
<button type="submit">Search</button>
</form>
</body></html>
`
