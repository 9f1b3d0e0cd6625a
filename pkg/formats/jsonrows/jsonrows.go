// Package jsonrows streams the row arrays of JSON dictionary banks and
// decodes their positional fields.
package jsonrows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/japaniel/lexicard/pkg/lexicon"
)

var errNotArray = errors.New("document is not a JSON array")

// Each decodes the top-level array of r one element at a time and calls fn
// with its 1-based row number. Malformed JSON is reported as a
// lexicon.ParseError for file; errors from fn are returned unchanged.
func Each(file string, r io.Reader, fn func(row int, raw json.RawMessage) error) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return &lexicon.ParseError{File: file, Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return &lexicon.ParseError{File: file, Err: errNotArray}
	}
	for row := 1; dec.More(); row++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return &lexicon.ParseError{File: file, Line: row, Err: err}
		}
		if err := fn(row, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return &lexicon.ParseError{File: file, Err: err}
	}
	return nil
}

// IsNull reports whether raw is the JSON null literal.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Array decodes raw as an array.
func Array(raw json.RawMessage) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil || out == nil && !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, errors.New("not an array")
	}
	return out, nil
}

// String decodes raw as a string.
func String(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || IsNull(raw) {
		return "", errors.New("not a string")
	}
	return s, nil
}

// OptionalString decodes raw as a string, treating null as empty.
func OptionalString(raw json.RawMessage) (string, error) {
	if IsNull(raw) {
		return "", nil
	}
	return String(raw)
}

// Number decodes raw as a number.
func Number(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || IsNull(raw) {
		return 0, errors.New("not a number")
	}
	return f, nil
}

// Field names position i of row for error messages.
func Field(i int, name string, err error) error {
	return fmt.Errorf("element %d (%s): %w", i, name, err)
}
