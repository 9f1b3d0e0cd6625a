// Package dictcc imports dict.cc tab separated exports.
package dictcc

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
	"github.com/japaniel/lexicard/pkg/stem"
	"github.com/japaniel/lexicard/pkg/store"
)

// linePattern matches head, meaning, part of speech and optional end tags.
var linePattern = regexp.MustCompile(`^([^\t]+)\t([^\t]+)\t([^\t]*)(?:\t([^\t]*))?$`)

// Format is the dict.cc format.
type Format struct {
	formats.Base
}

// New returns the dict.cc format.
func New() *Format {
	return &Format{Base: formats.Base{Kind: lexicon.FormatDictCC, Entries: store.TableDictCC}}
}

// Import implements formats.Format.
func (f *Format) Import(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string) (lexicon.Dictionary, ingest.Result, error) {
	res, err := f.Run(ctx, p, d, path, Converter{})
	return d, res, err
}

// Lookup implements formats.Format.
func (f *Format) Lookup(ctx context.Context, st store.Store, opts lookup.Options, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	m := lookup.GermanMatcher{Table: f.Entries, Format: f.Kind, Options: opts}
	return m.Match(ctx, st, dictKeys, text)
}

// Converter parses dict.cc lines into entries.
type Converter struct{}

// Classify accepts text files.
func (Converter) Classify(name string) ingest.Class {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".tsv", "":
		return ingest.Class{Kind: "tsv", Content: true}
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
			// A first line without a tab marks a text file that is not an export.
			if !strings.Contains(line, "\t") {
				return ingest.ErrNotContent
			}
		}
		e, ok := ParseLine(line)
		if !ok {
			return &lexicon.ParseError{File: name, Line: n, Text: line}
		}
		sink.Entry(e)
		return nil
	})
}

// ParseLine parses one dict.cc line.
func ParseLine(line string) (lexicon.Entry, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return lexicon.Entry{}, false
	}
	head := strings.TrimSpace(m[1])
	meaning := strings.TrimSpace(m[2])
	if head == "" || meaning == "" {
		return lexicon.Entry{}, false
	}
	var tags []string
	for _, t := range []string{m[3], m[4]} {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	combos, count := stem.PhraseKeys(head)
	return lexicon.Entry{
		Head:              head,
		Meanings:          []string{meaning},
		Tags:              strings.Join(tags, " "),
		TokenCombos:       combos,
		SearchTokensCount: count,
	}, true
}
