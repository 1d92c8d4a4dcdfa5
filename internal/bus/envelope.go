package bus

import "encoding/base64"

// Addresses handlers register under. The table is closed; the router maps
// HTTP endpoints onto it.
const (
	AddrPageView        = "fitnesse.page.view"
	AddrPageEdit        = "fitnesse.page.edit"
	AddrPageSave        = "fitnesse.page.save"
	AddrPageAttachments = "fitnesse.page.attachments"
	AddrResults         = "fitnesse.results"
	AddrTestSuite       = "fitnesse.test.suite"
	AddrTestSingle      = "fitnesse.test.single"
)

// Upload is one staged file upload. The body is written to a temp file by
// the router before dispatch; handlers read and clean up TempPath.
type Upload struct {
	Field       string `json:"field"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	TempPath    string `json:"tempPath"`
	Size        int64  `json:"size"`
}

// Envelope is the dispatch payload handed to a handler. Headers and params
// keep their multi-valued form.
type Envelope struct {
	Resource    string              `json:"resource"`
	ContextRoot string              `json:"contextRoot,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Params      map[string][]string `json:"params,omitempty"`
	Body        []byte              `json:"body,omitempty"`
	Uploads     []Upload            `json:"uploads,omitempty"`

	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// Param returns the first value for a param key, or "".
func (e Envelope) Param(key string) string {
	if vs := e.Params[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// HasParam reports whether the key was present at all, even with no value.
func (e Envelope) HasParam(key string) bool {
	_, ok := e.Params[key]
	return ok
}

// Header returns the first value for a header key, or "".
func (e Envelope) Header(key string) string {
	if vs := e.Headers[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Response is a handler's reply. The body travels base64-encoded so the
// reply JSON is binary-safe.
type Response struct {
	Status     int               `json:"status"`
	Headers    map[string]string `json:"headers"`
	BodyBase64 string            `json:"bodyBase64"`
}

// Reply builds a response from raw body bytes.
func Reply(status int, headers map[string]string, body []byte) Response {
	if headers == nil {
		headers = map[string]string{}
	}
	return Response{
		Status:     status,
		Headers:    headers,
		BodyBase64: base64.StdEncoding.EncodeToString(body),
	}
}

// Text builds a plain-text response.
func Text(status int, body string) Response {
	return Reply(status, map[string]string{"Content-Type": "text/plain; charset=utf-8"}, []byte(body))
}

// HTML builds an HTML response.
func HTML(status int, body string) Response {
	return Reply(status, map[string]string{"Content-Type": "text/html; charset=utf-8"}, []byte(body))
}

// JSON builds a response with a pre-encoded JSON body.
func JSON(status int, body []byte) Response {
	return Reply(status, map[string]string{"Content-Type": "application/json"}, body)
}

// Body decodes the base64 body.
func (r Response) Body() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.BodyBase64)
}
