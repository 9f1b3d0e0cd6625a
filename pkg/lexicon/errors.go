package lexicon

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a dictionary or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownFormat is returned for format names outside Formats.
	ErrUnknownFormat = errors.New("unknown dictionary format")
)

// ParseError reports a line or JSON document that does not follow its format grammar.
type ParseError struct {
	File string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s:%d", e.File, e.Line)
	if e.Text != "" {
		msg += fmt.Sprintf(": %q", truncate(e.Text, 80))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaValidationError reports a Yomitan payload that fails the schema of its version.
type SchemaValidationError struct {
	Version int
	File    string
	Row     int
	Reason  string
}

func (e *SchemaValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema v%d: %s row %d: %s", e.Version, e.File, e.Row, e.Reason)
	}
	return fmt.Sprintf("schema v%d: %s: %s", e.Version, e.File, e.Reason)
}

// ArchiveError reports an archive that cannot be opened or read.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// EmptyDictionaryError is returned when an archive has no recognized content file.
type EmptyDictionaryError struct {
	Format Format
	Path   string
}

func (e *EmptyDictionaryError) Error() string {
	switch e.Format {
	case FormatDictCC:
		return fmt.Sprintf("%s: no dict.cc .txt file found", e.Path)
	case FormatCEDict:
		return fmt.Sprintf("%s: no CC-CEDICT .u8/.txt file found", e.Path)
	case FormatTermBank:
		return fmt.Sprintf("%s: no term_bank_*.json file found", e.Path)
	case FormatYomitan:
		return fmt.Sprintf("%s: no term, kanji or meta bank found", e.Path)
	}
	return fmt.Sprintf("%s: empty dictionary", e.Path)
}

// StoreError wraps a failed persistence operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore wraps err as a StoreError unless it is nil or already one.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
