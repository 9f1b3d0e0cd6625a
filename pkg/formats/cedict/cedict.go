// Package cedict imports CC-CEDICT dictionaries.
package cedict

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/japaniel/lexicard/pkg/archive"
	"github.com/japaniel/lexicard/pkg/formats"
	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/lookup"
	"github.com/japaniel/lexicard/pkg/store"
)

// linePattern matches "traditional simplified [pinyin] /gloss/gloss/".
var linePattern = regexp.MustCompile(`^(\S+) (\S+) \[([^\]]*)\] /(.*)/\s*$`)

// Format is the CC-CEDICT format.
type Format struct {
	formats.Base
}

// New returns the CC-CEDICT format.
func New() *Format {
	return &Format{Base: formats.Base{Kind: lexicon.FormatCEDict, Entries: store.TableCEDict}}
}

// Import implements formats.Format.
func (f *Format) Import(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string) (lexicon.Dictionary, ingest.Result, error) {
	res, err := f.Run(ctx, p, d, path, Converter{})
	return d, res, err
}

// Lookup implements formats.Format.
func (f *Format) Lookup(ctx context.Context, st store.Store, opts lookup.Options, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	m := lookup.CJKMatcher{Table: f.Entries, Format: f.Kind, Options: opts}
	return m.Match(ctx, st, dictKeys, text)
}

// Converter parses CC-CEDICT lines into entries.
type Converter struct{}

// Classify accepts text files.
func (Converter) Classify(name string) ingest.Class {
	switch strings.ToLower(path.Ext(name)) {
	case ".u8", ".txt", "":
		return ingest.Class{Kind: "cedict", Content: true}
	}
	return ingest.Class{}
}

// Convert implements ingest.Converter.
func (Converter) Convert(_ context.Context, _, name string, r io.Reader, sink *ingest.Sink) error {
	first := true
	return archive.ReadLines(r, sink.ChunkSize, func(n int, line string) error {
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}
		if first {
			first = false
			// A first line without a pinyin bracket and a gloss marks a text file that is not CEDICT.
			if !strings.Contains(trimmed, "[") || !strings.Contains(trimmed, "/") {
				return ingest.ErrNotContent
			}
		}
		e, ok := ParseLine(trimmed)
		if !ok {
			return &lexicon.ParseError{File: name, Line: n, Text: line}
		}
		sink.Entry(e)
		return nil
	})
}

// ParseLine parses one CC-CEDICT line.
func ParseLine(line string) (lexicon.Entry, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return lexicon.Entry{}, false
	}
	var meanings []string
	for _, g := range strings.Split(m[4], "/") {
		if g = strings.TrimSpace(g); g != "" {
			meanings = append(meanings, g)
		}
	}
	if len(meanings) == 0 {
		return lexicon.Entry{}, false
	}
	return lexicon.Entry{
		Head:          m[1],
		Variant:       m[2],
		Pronunciation: strings.TrimSpace(m[3]),
		Meanings:      meanings,
	}, true
}
