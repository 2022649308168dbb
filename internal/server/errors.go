package server

import (
	"errors"
	"fmt"

	"github.com/xaitan80/staticserve/internal/request"
)

// Op names the step of connection handling that failed.
type Op string

const (
	OpAccept Op = "accept"
	OpRead   Op = "read"
	OpParse  Op = "parse"
	OpWrite  Op = "write"
	OpFlush  Op = "flush"
)

// ConnError is a failure tied to one step of serving a connection. ConnID is
// empty for accept failures.
type ConnError struct {
	Op     Op
	ConnID string
	Err    error
}

func (e *ConnError) Error() string {
	if e.ConnID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("conn %s: %s: %v", e.ConnID, e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// isParseError reports whether err came from interpreting the request bytes
// rather than from the transport.
func isParseError(err error) bool {
	return errors.Is(err, request.ErrEmptyRequest) ||
		errors.Is(err, request.ErrMalformedRequestLine) ||
		errors.Is(err, request.ErrUnknownMethod) ||
		errors.Is(err, request.ErrRequestTooLarge)
}
