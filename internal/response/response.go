package response

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/xaitan80/staticserve/internal/headers"
)

// StatusCode is a limited set of HTTP status codes we support.
type StatusCode int

const (
	StatusOK                          StatusCode = 200
	StatusBadRequest                  StatusCode = 400
	StatusMethodNotAllowed            StatusCode = 405
	StatusRequestHeaderFieldsTooLarge StatusCode = 431
)

// Reason returns the reason phrase for the status line, or "" for codes we
// don't know.
func (s StatusCode) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	default:
		return ""
	}
}

// WriteStatusLine writes the HTTP/1.1 status line for the given status code.
func WriteStatusLine(w io.Writer, statusCode StatusCode) error {
	reason := statusCode.Reason()
	if reason == "" {
		_, err := fmt.Fprintf(w, "HTTP/1.1 %d\r\n", int(statusCode))
		return err
	}
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", int(statusCode), reason)
	return err
}

// GetDefaultHeaders returns the headers every response carries, in wire order.
func GetDefaultHeaders(serverName string, contentLen int, contentType string) headers.Headers {
	h := headers.NewHeaders()
	h.Set("Server", serverName)
	h.Set("Content-Length", strconv.Itoa(contentLen))
	h.Set("Content-Type", contentType)
	h.Set("Connection", "Closed")
	return h
}

// Writer buffers a response on its way to the underlying writer. Nothing
// reaches the destination before Flush unless the buffer fills up.
type Writer struct {
	bw    *bufio.Writer
	wrote bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

func (w *Writer) WriteStatusLine(statusCode StatusCode) error {
	w.wrote = true
	return WriteStatusLine(w.bw, statusCode)
}

func (w *Writer) WriteHeaders(h headers.Headers) error {
	w.wrote = true
	_, err := h.WriteTo(w.bw)
	return err
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	w.wrote = true
	return w.bw.Write(p)
}

// Write copies an already framed response.
func (w *Writer) Write(p []byte) (int, error) {
	w.wrote = true
	return w.bw.Write(p)
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// WroteAnything reports whether any part of a response has been written.
func (w *Writer) WroteAnything() bool {
	return w.wrote
}
