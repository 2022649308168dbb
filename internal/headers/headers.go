package headers

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field is a single header line.
type Field struct {
	Key   string
	Value string
}

// Headers is an ordered list of response header fields. Fields are written
// in the order they were first set.
type Headers []Field

// NewHeaders creates an empty Headers list.
func NewHeaders() Headers {
	return make(Headers, 0, 5)
}

// Set replaces the value of an existing field (matched case-insensitively)
// in place, or appends a new field.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Field{Key: key, Value: value})
}

// Get returns the value for key, or "" if the field is not present.
func (h Headers) Get(key string) string {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// WriteTo writes every field as "Key: Value\r\n" followed by the blank line
// that ends the header block.
func (h Headers) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range h {
		if err := validate(f); err != nil {
			return total, err
		}
		n, err := fmt.Fprintf(w, "%s: %s\r\n", f.Key, f.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := io.WriteString(w, "\r\n")
	total += int64(n)
	return total, err
}

func validate(f Field) error {
	if f.Key == "" {
		return errors.New("invalid header: empty key")
	}
	// Keys are letters, digits, and '-'.
	for i := 0; i < len(f.Key); i++ {
		c := f.Key[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return fmt.Errorf("invalid header: invalid character in key %q", f.Key)
		}
	}
	if strings.ContainsAny(f.Value, "\r\n") {
		return fmt.Errorf("invalid header: line break in value of %q", f.Key)
	}
	return nil
}
