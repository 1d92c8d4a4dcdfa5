// Package page implements the bus handlers for viewing, editing, saving
// and attaching to wiki pages, plus the recorded-results listing. The
// same handlers serve the interactive UI and the JSON API; the envelope's
// context root selects the rendering.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strconv"

	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/docstore"
	"github.com/mattjoyce/wikigate/internal/log"
	"github.com/mattjoyce/wikigate/internal/results"
)

// apiRoot marks envelopes that arrived through the JSON surface.
const apiRoot = "/api"

// Handlers owns the page-level bus handlers.
type Handlers struct {
	store  docstore.Store
	index  *results.Index
	logger *slog.Logger
}

// NewHandlers wires the handlers to their store. index may be nil when run
// recording is disabled; the results address then serves empty lists.
func NewHandlers(store docstore.Store, index *results.Index) *Handlers {
	return &Handlers{store: store, index: index, logger: log.WithComponent("page")}
}

// Register binds every page address on the general pool.
func (h *Handlers) Register(b *bus.Bus) {
	b.Register(bus.AddrPageView, h.View)
	b.Register(bus.AddrPageEdit, h.Edit)
	b.Register(bus.AddrPageSave, h.Save)
	b.Register(bus.AddrPageAttachments, h.Attachments)
	b.Register(bus.AddrResults, h.Results)
}

func wantsJSON(env bus.Envelope) bool {
	return env.ContextRoot == apiRoot
}

// View serves a page's content. The response carries the store head in a
// Current-Version header so clients can edit optimistically.
func (h *Handlers) View(_ context.Context, env bus.Envelope) (bus.Response, error) {
	ref := h.store.Resolve(env.Resource)
	pg, err := h.store.ReadPage(ref)
	if err != nil {
		return bus.Response{}, err
	}
	head, err := h.store.Head(ref)
	if err != nil {
		return bus.Response{}, err
	}

	if wantsJSON(env) {
		body, err := json.Marshal(map[string]string{
			"path":       ref.WikiPath,
			"content":    pg.Content,
			"properties": pg.PropertiesXML,
			"version":    head,
		})
		if err != nil {
			return bus.Response{}, err
		}
		resp := bus.JSON(200, body)
		resp.Headers["Current-Version"] = head
		return resp, nil
	}

	children, err := h.store.ListChildren(ref)
	if err != nil {
		return bus.Response{}, err
	}
	resp := bus.HTML(200, renderView(ref, pg, children))
	resp.Headers["Current-Version"] = head
	return resp, nil
}

// Edit serves the edit form, pre-filled with the current content and
// version token.
func (h *Handlers) Edit(_ context.Context, env bus.Envelope) (bus.Response, error) {
	ref := h.store.Resolve(env.Resource)
	pg, err := h.store.ReadPage(ref)
	if err != nil {
		return bus.Response{}, err
	}
	head, err := h.store.Head(ref)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.HTML(200, renderEdit(ref, pg, head)), nil
}

// Save writes the posted content. A stale expectedVersion that the store
// cannot merge comes back as 409.
func (h *Handlers) Save(_ context.Context, env bus.Envelope) (bus.Response, error) {
	ref := h.store.Resolve(env.Resource)

	req := docstore.PageWriteRequest{
		Content:         env.Param("content"),
		ExpectedVersion: env.Param("expectedVersion"),
		AuthorName:      env.UserName,
		AuthorEmail:     env.UserEmail,
	}
	if env.HasParam("properties") {
		props := env.Param("properties")
		req.PropertiesXML = &props
	}

	if err := h.store.WritePage(ref, req); err != nil {
		if docstore.IsConflict(err) {
			h.logger.Warn("save conflict", "page", ref.WikiPath)
			if wantsJSON(env) {
				body, _ := json.Marshal(map[string]string{
					"error": "version conflict",
					"path":  ref.WikiPath,
				})
				return bus.JSON(409, body), nil
			}
			return bus.HTML(409, renderConflict(ref)), nil
		}
		return bus.Response{}, err
	}

	head, err := h.store.Head(ref)
	if err != nil {
		return bus.Response{}, err
	}
	h.logger.Info("page saved", "page", ref.WikiPath, "author", env.UserName)

	if wantsJSON(env) {
		body, err := json.Marshal(map[string]string{"path": ref.WikiPath, "version": head})
		if err != nil {
			return bus.Response{}, err
		}
		resp := bus.JSON(200, body)
		resp.Headers["Current-Version"] = head
		return resp, nil
	}
	return bus.Reply(302, map[string]string{"Location": "/wiki/" + ref.WikiPath}, nil), nil
}

// Attachments stores each staged upload under the page and cleans up the
// temp files.
func (h *Handlers) Attachments(_ context.Context, env bus.Envelope) (bus.Response, error) {
	ref := h.store.Resolve(env.Resource)

	var names []string
	for _, upload := range env.Uploads {
		data, err := os.ReadFile(upload.TempPath)
		if err != nil {
			return bus.Response{}, fmt.Errorf("read upload %s: %w", upload.FileName, err)
		}
		if err := h.store.WriteAttachment(docstore.AttachmentRef{Page: ref, Name: upload.FileName}, data); err != nil {
			return bus.Response{}, err
		}
		_ = os.Remove(upload.TempPath)
		names = append(names, upload.FileName)
	}
	h.logger.Info("attachments stored", "page", ref.WikiPath, "count", len(names))

	if wantsJSON(env) {
		body, err := json.Marshal(map[string]any{"path": ref.WikiPath, "stored": names})
		if err != nil {
			return bus.Response{}, err
		}
		return bus.JSON(200, body), nil
	}
	return bus.Reply(302, map[string]string{"Location": "/wiki/" + ref.WikiPath}, nil), nil
}

// Results lists recorded runs for a page, newest first.
func (h *Handlers) Results(ctx context.Context, env bus.Envelope) (bus.Response, error) {
	ref := h.store.Resolve(env.Resource)

	limit, _ := strconv.Atoi(env.Param("limit"))
	var runs []results.Run
	if h.index != nil {
		var err error
		runs, err = h.index.ForPage(ctx, ref.WikiPath, limit)
		if err != nil {
			return bus.Response{}, err
		}
	}

	if wantsJSON(env) {
		body, err := json.Marshal(map[string]any{"path": ref.WikiPath, "runs": runs})
		if err != nil {
			return bus.Response{}, err
		}
		return bus.JSON(200, body), nil
	}
	return bus.HTML(200, renderResults(ref, runs)), nil
}

func renderView(ref docstore.PageRef, pg docstore.Page, children []docstore.PageRef) string {
	out := "<!DOCTYPE html>\n<html><head><title>" + html.EscapeString(ref.WikiPath) + "</title></head><body>\n"
	out += "<h1>" + html.EscapeString(ref.WikiPath) + "</h1>\n"
	out += "<pre>" + html.EscapeString(pg.Content) + "</pre>\n"
	if len(children) > 0 {
		out += "<ul>\n"
		for _, child := range children {
			out += fmt.Sprintf("<li><a href=\"/wiki/%s\">%s</a></li>\n",
				child.WikiPath, html.EscapeString(child.Name()))
		}
		out += "</ul>\n"
	}
	out += fmt.Sprintf("<p><a href=\"/wiki/%s/edit\">Edit</a> | <a href=\"/history/%s\">History</a></p>\n",
		ref.WikiPath, ref.WikiPath)
	out += "</body></html>\n"
	return out
}

func renderEdit(ref docstore.PageRef, pg docstore.Page, head string) string {
	out := "<!DOCTYPE html>\n<html><head><title>Edit " + html.EscapeString(ref.WikiPath) + "</title></head><body>\n"
	out += fmt.Sprintf("<form method=\"post\" action=\"/wiki/%s\">\n", ref.WikiPath)
	out += "<textarea name=\"content\" rows=\"25\" cols=\"80\">" + html.EscapeString(pg.Content) + "</textarea>\n"
	out += fmt.Sprintf("<input type=\"hidden\" name=\"expectedVersion\" value=%q>\n", head)
	out += "<button type=\"submit\">Save</button>\n</form>\n</body></html>\n"
	return out
}

func renderConflict(ref docstore.PageRef) string {
	return "<!DOCTYPE html>\n<html><body><h1>Conflict</h1><p>" +
		html.EscapeString(ref.WikiPath) +
		" changed while you were editing. Reload and try again.</p></body></html>\n"
}

func renderResults(ref docstore.PageRef, runs []results.Run) string {
	out := "<!DOCTYPE html>\n<html><head><title>Results for " + html.EscapeString(ref.WikiPath) + "</title></head><body>\n"
	out += "<h1>Results for " + html.EscapeString(ref.WikiPath) + "</h1>\n<table>\n"
	out += "<tr><th>when</th><th>status</th><th>right</th><th>wrong</th><th>exceptions</th><th>duration</th></tr>\n"
	for _, run := range runs {
		out += fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d ms</td></tr>\n",
			run.CompletedAt.Format("2006-01-02 15:04:05"), html.EscapeString(run.Status),
			run.Right, run.Wrong, run.Exceptions, run.DurationMS)
	}
	out += "</table>\n</body></html>\n"
	return out
}
