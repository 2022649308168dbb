package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/xaitan80/staticserve/internal/headers"
	"github.com/xaitan80/staticserve/internal/request"
)

// NotFoundBody is served, with status 200, whenever the requested file
// cannot be read as text.
const NotFoundBody = "<h1>Not Found</h1>"

const defaultSubtype = "html"

// Builder turns requests into complete HTTP responses for files under root.
type Builder struct {
	root       string
	serverName string
}

// NewBuilder fails if serverName cannot be sent as a header value.
func NewBuilder(root, serverName string) (*Builder, error) {
	if serverName == "" {
		return nil, errors.New("server name: must not be empty")
	}
	if _, err := GetDefaultHeaders(serverName, 0, "text/html").WriteTo(io.Discard); err != nil {
		return nil, fmt.Errorf("server name: %w", err)
	}
	return &Builder{root: root, serverName: serverName}, nil
}

// Build resolves req.Path under the serving root and frames the result.
// The path is appended to the root as-is: ".." segments are not cleaned and
// can reach files outside the root. Missing, unreadable, and non UTF-8 files
// all produce NotFoundBody as text/html. The status is always 200 OK.
func (b *Builder) Build(req *request.Request) []byte {
	subtype := ContentSubtype(req.Path)
	body, err := b.readText(req.Path)
	if err != nil {
		body = []byte(NotFoundBody)
		subtype = defaultSubtype
	}
	return b.render(StatusOK, "text/"+subtype, body, nil)
}

// Reject frames the answer to a request that could not be parsed.
func (b *Builder) Reject(err error) []byte {
	status := StatusFor(err)
	extra := headers.NewHeaders()
	if status == StatusMethodNotAllowed {
		extra.Set("Allow", "GET, POST")
	}
	return b.render(status, "text/html", errorBody(status), extra)
}

// StatusFor maps a request parsing error to the status used to reject it.
func StatusFor(err error) StatusCode {
	switch {
	case errors.Is(err, request.ErrUnknownMethod):
		return StatusMethodNotAllowed
	case errors.Is(err, request.ErrRequestTooLarge):
		return StatusRequestHeaderFieldsTooLarge
	default:
		return StatusBadRequest
	}
}

// ContentSubtype returns what follows the last '.' in path, or "html" when
// path has no '.'.
func ContentSubtype(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return defaultSubtype
	}
	return path[i+1:]
}

func (b *Builder) readText(path string) ([]byte, error) {
	data, err := os.ReadFile(b.root + "/" + path)
	if err != nil {
		return nil, err
	}
	if _, _, err := transform.Bytes(encoding.UTF8Validator, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Builder) render(status StatusCode, contentType string, body []byte, extra headers.Headers) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	hdrs := GetDefaultHeaders(b.serverName, len(body), contentType)
	for _, f := range extra {
		hdrs.Set(f.Key, f.Value)
	}

	// Writes into a bytes.Buffer only fail on invalid header fields, which
	// NewBuilder rules out for the server name.
	_ = w.WriteStatusLine(status)
	_ = w.WriteHeaders(hdrs)
	_, _ = w.WriteBody(body)
	_ = w.Flush()
	return buf.Bytes()
}

func errorBody(status StatusCode) []byte {
	h1 := &html.Node{Type: html.ElementNode, Data: "h1", DataAtom: atom.H1}
	h1.AppendChild(&html.Node{Type: html.TextNode, Data: status.Reason()})

	var buf bytes.Buffer
	if err := html.Render(&buf, h1); err != nil {
		return []byte(status.Reason())
	}
	return buf.Bytes()
}
