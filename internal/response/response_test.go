package response

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaitan80/staticserve/internal/request"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newBuilder(t *testing.T, root, serverName string) *Builder {
	t.Helper()
	b, err := NewBuilder(root, serverName)
	require.NoError(t, err)
	return b
}

func get(path string) *request.Request {
	return &request.Request{Method: request.MethodGet, Path: path}
}

func frame(subtype, body string) string {
	return "HTTP/1.1 200 OK\r\n" +
		"Server: staticserve\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(body)) +
		"Content-Type: text/" + subtype + "\r\n" +
		"Connection: Closed\r\n" +
		"\r\n" +
		body
}

func Test_Build_Existing_File(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<p>hi</p>")

	b := newBuilder(t, root, "staticserve")
	got := string(b.Build(get("/index.html")))
	assert.Equal(t, frame("html", "<p>hi</p>"), got)
	assert.Contains(t, got, "Content-Length: 9\r\n")
}

func Test_Build_Subtype_From_Extension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "style.css", "body{}")
	writeFile(t, root, "notes.txt", "plain")
	writeFile(t, root, "assets/app.min.js", "let x = 1;")

	b := newBuilder(t, root, "staticserve")
	assert.Equal(t, frame("css", "body{}"), string(b.Build(get("/style.css"))))
	assert.Equal(t, frame("txt", "plain"), string(b.Build(get("/notes.txt"))))
	assert.Equal(t, frame("js", "let x = 1;"), string(b.Build(get("/assets/app.min.js"))))
}

func Test_Build_File_Without_Extension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README", "read me")

	b := newBuilder(t, root, "staticserve")
	assert.Equal(t, frame("html", "read me"), string(b.Build(get("/README"))))
}

func Test_Build_Missing_File(t *testing.T) {
	b := newBuilder(t, t.TempDir(), "staticserve")
	got := string(b.Build(get("/missing.txt")))
	assert.Equal(t, frame("html", NotFoundBody), got)
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n"))
}

func Test_Build_Directory_Is_Not_Found(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.txt", "a")

	b := newBuilder(t, root, "staticserve")
	assert.Equal(t, frame("html", NotFoundBody), string(b.Build(get("/"))))
	assert.Equal(t, frame("html", NotFoundBody), string(b.Build(get("/docs"))))
}

func Test_Build_Invalid_UTF8_Is_Not_Found(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", "\x89PNG\r\n\x1a\n\xff\xfe")

	b := newBuilder(t, root, "staticserve")
	assert.Equal(t, frame("html", NotFoundBody), string(b.Build(get("/logo.png"))))
}

func Test_Build_Content_Length_Counts_Bytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "hello.txt", "héllo wörld")

	b := newBuilder(t, root, "staticserve")
	got := string(b.Build(get("/hello.txt")))
	assert.Contains(t, got, "Content-Length: 13\r\n")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nhéllo wörld"))
}

func Test_Build_Path_Is_Not_Cleaned(t *testing.T) {
	parent := t.TempDir()
	writeFile(t, parent, "secret.txt", "outside")
	root := filepath.Join(parent, "public")
	require.NoError(t, os.Mkdir(root, 0o755))

	b := newBuilder(t, root, "staticserve")
	assert.Equal(t, frame("txt", "outside"), string(b.Build(get("/../secret.txt"))))
}

func Test_Build_POST_Serves_Same_File(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<p>hi</p>")

	b := newBuilder(t, root, "staticserve")
	post := &request.Request{Method: request.MethodPost, Path: "/index.html"}
	assert.Equal(t, b.Build(get("/index.html")), b.Build(post))
}

func Test_Build_Is_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<p>hi</p>")

	b := newBuilder(t, root, "staticserve")
	for _, p := range []string{"/index.html", "/missing.css"} {
		first := b.Build(get(p))
		for i := 0; i < 3; i++ {
			assert.True(t, bytes.Equal(first, b.Build(get(p))))
		}
	}
}

func Test_Build_Server_Name(t *testing.T) {
	b := newBuilder(t, t.TempDir(), "My Rust Code")
	assert.Contains(t, string(b.Build(get("/x"))), "\r\nServer: My Rust Code\r\n")
}

func Test_ContentSubtype(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/index.html", "html"},
		{"/style.css", "css"},
		{"/archive.tar.gz", "gz"},
		{"/README", "html"},
		{"/", "html"},
		{"", "html"},
		{"/dir.d/file", "d/file"},
		{"/trailing.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentSubtype(tt.path), tt.path)
	}
}

func Test_Reject(t *testing.T) {
	b := newBuilder(t, t.TempDir(), "staticserve")

	got := string(b.Reject(fmt.Errorf("%w: %q", request.ErrUnknownMethod, "DELETE")))
	body := "<h1>Method Not Allowed</h1>"
	want := "HTTP/1.1 405 Method Not Allowed\r\n" +
		"Server: staticserve\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(body)) +
		"Content-Type: text/html\r\n" +
		"Connection: Closed\r\n" +
		"Allow: GET, POST\r\n" +
		"\r\n" + body
	assert.Equal(t, want, got)

	got = string(b.Reject(request.ErrMalformedRequestLine))
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 400 Bad Request\r\n"))
	assert.True(t, strings.HasSuffix(got, "\r\n\r\n<h1>Bad Request</h1>"))
	assert.NotContains(t, got, "Allow:")

	got = string(b.Reject(request.ErrRequestTooLarge))
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 431 Request Header Fields Too Large\r\n"))
}

func Test_StatusFor(t *testing.T) {
	assert.Equal(t, StatusBadRequest, StatusFor(request.ErrEmptyRequest))
	assert.Equal(t, StatusBadRequest, StatusFor(errors.New("something else")))
	assert.Equal(t, StatusMethodNotAllowed, StatusFor(request.ErrUnknownMethod))
	assert.Equal(t, StatusRequestHeaderFieldsTooLarge, StatusFor(request.ErrRequestTooLarge))
}

func Test_WriteStatusLine_Unknown_Code(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatusLine(&buf, StatusCode(299)))
	assert.Equal(t, "HTTP/1.1 299\r\n", buf.String())
}

func Test_Writer_Buffers_Until_Flush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.False(t, w.WroteAnything())

	_, err := w.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	require.NoError(t, err)
	assert.True(t, w.WroteAnything())
	assert.Equal(t, 0, buf.Len())

	require.NoError(t, w.Flush())
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", buf.String())
}

func Test_NewBuilder_Rejects_Bad_Server_Name(t *testing.T) {
	for _, name := range []string{"", "x\r\nSet-Cookie: a=1", "line\nbreak"} {
		b, err := NewBuilder(t.TempDir(), name)
		require.Error(t, err, "%q", name)
		assert.Nil(t, b)
	}
}
