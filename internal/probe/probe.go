// Package probe talks to the server the way a bare client would: it writes
// raw request bytes on a fresh connection and reads everything until the
// server closes it.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/xaitan80/staticserve/internal/headers"
)

// Response is a response split into its parts.
type Response struct {
	StatusLine string
	Headers    headers.Headers
	Body       []byte
}

// RequestLine builds a minimal request for method and path.
func RequestLine(method, path string) []byte {
	return []byte(fmt.Sprintf("%s %s HTTP/1.1\r\nConnection: close\r\n\r\n", method, path))
}

// Exchange dials addr, writes raw, half-closes the connection, and returns
// every byte the server sends back.
func Exchange(ctx context.Context, addr string, raw []byte) ([]byte, error) {
	conn, err := send(ctx, addr, raw)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return io.ReadAll(conn)
}

// Stream is Exchange for callers that want the answer as it arrives: the
// response is read straight from the connection and delivered one line at a
// time. The channel is closed once the server closes the connection.
func Stream(ctx context.Context, addr string, raw []byte) (<-chan string, error) {
	conn, err := send(ctx, addr, raw)
	if err != nil {
		return nil, err
	}
	return Lines(conn), nil
}

func send(ctx context.Context, addr string, raw []byte) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if len(raw) > 0 {
		if _, err := conn.Write(raw); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write request: %w", err)
		}
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	return conn, nil
}

// Get sends a request line for method and path and parses the answer.
func Get(ctx context.Context, addr, method, path string) (*Response, error) {
	raw, err := Exchange(ctx, addr, RequestLine(method, path))
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// ParseResponse splits raw into status line, headers and body.
func ParseResponse(raw []byte) (*Response, error) {
	end := bytes.Index(raw, []byte("\r\n\r\n"))
	if end == -1 {
		return nil, errors.New("incomplete response: no end of headers")
	}

	lines := strings.Split(string(raw[:end]), "\r\n")
	resp := &Response{
		StatusLine: lines[0],
		Headers:    headers.NewHeaders(),
		Body:       raw[end+4:],
	}
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header line %q", line)
		}
		resp.Headers.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return resp, nil
}

// Lines sends each line read from rc, without its CRLF or LF, on the
// returned channel. A final line with no terminator is sent too. rc and the
// channel are closed when rc is exhausted.
func Lines(rc io.ReadCloser) <-chan string {
	ch := make(chan string)
	go func() {
		defer rc.Close()
		defer close(ch)

		br := bufio.NewReader(rc)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				ch <- strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
		}
	}()
	return ch
}
