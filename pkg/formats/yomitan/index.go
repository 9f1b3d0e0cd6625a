package yomitan

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/antonholmquist/jason"
	"github.com/japaniel/lexicard/pkg/archive"
	"github.com/japaniel/lexicard/pkg/lexicon"
)

const indexFile = "index.json"

// maxIndexSize bounds how much of index.json is read.
const maxIndexSize = 1 << 20

// Index is the metadata of a Yomitan dictionary.
type Index struct {
	Title     string
	Revision  string
	Version   int
	Sequenced bool
	Author    string
}

// ParseIndex decodes and validates an index.json document.
func ParseIndex(b []byte) (Index, error) {
	invalid := func(version int, reason string) error {
		return &lexicon.SchemaValidationError{Version: version, File: indexFile, Reason: reason}
	}
	obj, err := jason.NewObjectFromBytes(b)
	if err != nil {
		return Index{}, invalid(0, "invalid JSON: "+err.Error())
	}

	version, err := obj.GetInt64("format")
	if err != nil {
		version, err = obj.GetInt64("version")
	}
	if err != nil {
		return Index{}, invalid(0, "missing format")
	}
	if version < 1 || version > 3 {
		return Index{}, invalid(int(version), fmt.Sprintf("unsupported format %d", version))
	}
	idx := Index{Version: int(version)}

	if idx.Title, err = obj.GetString("title"); err != nil || idx.Title == "" {
		return Index{}, invalid(idx.Version, "missing title")
	}
	if idx.Revision, err = obj.GetString("revision"); err != nil {
		return Index{}, invalid(idx.Version, "missing revision")
	}
	if v, err := obj.GetBoolean("sequenced"); err == nil {
		idx.Sequenced = v
	}
	if v, err := obj.GetString("author"); err == nil {
		idx.Author = v
	}
	return idx, nil
}

// ReadIndex finds and parses index.json in the archive at p.
func ReadIndex(p string) (Index, error) {
	a, err := archive.Open(p)
	if err != nil {
		return Index{}, err
	}
	defer a.Close()

	if a.Len() == 0 {
		return Index{}, &lexicon.EmptyDictionaryError{Format: lexicon.FormatYomitan, Path: p}
	}
	var classifier Converter
	hasBanks := false
	for {
		e, err := a.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Index{}, &lexicon.ArchiveError{Path: p, Err: err}
		}
		if path.Clean(e.Name) != indexFile {
			hasBanks = hasBanks || classifier.Classify(e.Name).Content
			continue
		}
		rc, err := e.Open()
		if err != nil {
			return Index{}, &lexicon.ArchiveError{Path: p, Err: err}
		}
		b, err := io.ReadAll(io.LimitReader(rc, maxIndexSize))
		rc.Close()
		if err != nil {
			return Index{}, &lexicon.ArchiveError{Path: p, Err: err}
		}
		return ParseIndex(b)
	}
	if !hasBanks {
		return Index{}, &lexicon.EmptyDictionaryError{Format: lexicon.FormatYomitan, Path: p}
	}
	return Index{}, &lexicon.SchemaValidationError{File: indexFile, Reason: "archive has no index.json"}
}
