package web

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/identity"
)

// maxUploadMemory bounds the in-memory part of multipart parsing; larger
// parts spill to disk on their own before we stage them.
const maxUploadMemory = 10 << 20

// buildEnvelope translates an HTTP request into a bus envelope. Query and
// form parameters merge into Params, multipart file parts are staged as temp
// files, and the identity resolved earlier on the request context fills the
// user fields.
func buildEnvelope(r *http.Request, resource, contextRoot string) (bus.Envelope, error) {
	env := bus.Envelope{
		Resource:    resource,
		ContextRoot: contextRoot,
		Headers:     map[string][]string{},
		Params:      map[string][]string{},
	}
	for name, values := range r.Header {
		env.Headers[name] = append([]string(nil), values...)
	}
	for name, values := range r.URL.Query() {
		env.Params[name] = append(env.Params[name], values...)
	}

	if id, ok := identity.FromContext(r.Context()); ok {
		env.UserName = id.Name
		env.UserEmail = id.Email
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return env, fmt.Errorf("parse multipart form: %w", err)
		}
		for name, values := range r.MultipartForm.Value {
			env.Params[name] = append(env.Params[name], values...)
		}
		for field, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				upload, err := stageUpload(field, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, func() (io.ReadCloser, error) {
					return fh.Open()
				})
				if err != nil {
					return env, err
				}
				env.Uploads = append(env.Uploads, upload)
			}
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return env, fmt.Errorf("parse form: %w", err)
		}
		for name, values := range r.PostForm {
			env.Params[name] = append(env.Params[name], values...)
		}
	default:
		if r.Body != nil {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return env, fmt.Errorf("read body: %w", err)
			}
			env.Body = body
		}
	}
	return env, nil
}

func stageUpload(field, fileName, contentType string, size int64, open func() (io.ReadCloser, error)) (bus.Upload, error) {
	src, err := open()
	if err != nil {
		return bus.Upload{}, fmt.Errorf("open upload %s: %w", fileName, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "wikigate-upload-*")
	if err != nil {
		return bus.Upload{}, fmt.Errorf("stage upload %s: %w", fileName, err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return bus.Upload{}, fmt.Errorf("stage upload %s: %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return bus.Upload{}, fmt.Errorf("stage upload %s: %w", fileName, err)
	}
	return bus.Upload{Field: field, FileName: fileName, ContentType: contentType, TempPath: tmp.Name(), Size: size}, nil
}

// writeResponse relays a bus response to the HTTP client. Hop-by-hop framing
// headers are dropped in favour of an explicit Content-Length, a body that a
// handler framed as chunked is de-chunked first, and a Current-Version header
// doubles as the ETag when none was set.
func writeResponse(w http.ResponseWriter, resp bus.Response) error {
	body, err := resp.Body()
	if err != nil {
		http.Error(w, "invalid response body", http.StatusInternalServerError)
		return fmt.Errorf("decode response body: %w", err)
	}

	chunked := false
	etag := ""
	version := ""
	for name, value := range resp.Headers {
		switch http.CanonicalHeaderKey(name) {
		case "Transfer-Encoding":
			chunked = strings.Contains(strings.ToLower(value), "chunked")
			continue
		case "Content-Length":
			continue
		case "Etag":
			etag = value
		case "Current-Version":
			version = value
		}
		if !validHeaderName(name) {
			continue
		}
		w.Header().Set(name, value)
	}
	if chunked {
		body = dechunk(body)
	}
	if etag == "" && version != "" {
		w.Header().Set("ETag", strconv.Quote(version))
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.Status)
	_, err = w.Write(body)
	return err
}

// validHeaderName accepts the token characters we let through to the client:
// letters, digits, and the punctuation seen in real page metadata headers.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '!':
		default:
			return false
		}
	}
	return true
}

// dechunk decodes a chunked transfer encoding body. Anything that fails to
// parse as chunked comes back unchanged.
func dechunk(body []byte) []byte {
	var out bytes.Buffer
	r := bufio.NewReader(bytes.NewReader(body))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return body
		}
		sizeHex := strings.TrimSpace(line)
		if i := strings.IndexByte(sizeHex, ';'); i >= 0 {
			sizeHex = sizeHex[:i]
		}
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size < 0 {
			return body
		}
		if size == 0 {
			return out.Bytes()
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return body
		}
		// trailing CRLF after each chunk
		if _, err := r.Discard(2); err != nil {
			return body
		}
	}
}
