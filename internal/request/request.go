package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMaxBytes bounds how much of a request is read before the request
// line must have ended.
const DefaultMaxBytes = 512

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrRequestTooLarge      = errors.New("request too large")
)

var crlf = []byte("\r\n")

// Method is the verb of a request line.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
)

var methods = map[string]Method{
	"GET":  MethodGet,
	"POST": MethodPost,
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "UNKNOWN"
	}
}

// ParseMethod classifies a method token case-insensitively. Tokens other
// than GET and POST yield MethodUnknown and false.
func ParseMethod(token string) (Method, bool) {
	m, ok := methods[cases.Upper(language.Und).String(token)]
	if !ok {
		return MethodUnknown, false
	}
	return m, true
}

// Request is the part of an HTTP request the server acts on. Path is the
// second token of the request line exactly as the client sent it.
type Request struct {
	Method Method
	Path   string
}

// Parse interprets the bytes up to the first CRLF as a request line. The
// line is split on single spaces; the first token is the method, the second
// the path, and anything after that is ignored.
func Parse(data []byte) (*Request, error) {
	line := data
	if i := bytes.Index(data, crlf); i >= 0 {
		line = data[:i]
	}

	parts := strings.Split(string(line), " ")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	method, ok := ParseMethod(parts[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, parts[0])
	}

	return &Request{Method: method, Path: parts[1]}, nil
}

// RequestFromReader reads from reader until the request line ends, the peer
// stops sending, or maxBytes have been read, then parses the request line.
// Headers that follow are left unread. A request line that does not end
// within maxBytes is rejected with ErrRequestTooLarge instead of being
// truncated.
func RequestFromReader(reader io.Reader, maxBytes int) (*Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	buf := make([]byte, 0, maxBytes)
	tmp := make([]byte, 64)

	for len(buf) < maxBytes && !bytes.Contains(buf, crlf) {
		want := min(len(tmp), maxBytes-len(buf))
		n, err := reader.Read(tmp[:want])
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if len(buf) == 0 {
		return nil, ErrEmptyRequest
	}
	if len(buf) >= maxBytes && !bytes.Contains(buf, crlf) {
		return nil, fmt.Errorf("%w: no request line within %d bytes", ErrRequestTooLarge, maxBytes)
	}
	return Parse(buf)
}
