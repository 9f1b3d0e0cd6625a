// Package termbank imports legacy term bank dictionaries: archives of
// term_bank_N.json files holding one JSON array of positional rows.
package termbank

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/japaniel/lexicard/pkg/formats"
	"github.com/japaniel/lexicard/pkg/formats/jsonrows"
	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/lookup"
	"github.com/japaniel/lexicard/pkg/stem"
	"github.com/japaniel/lexicard/pkg/store"
)

var bankPattern = regexp.MustCompile(`^term_bank_\d+\.json$`)

// Format is the legacy term bank format.
type Format struct {
	formats.Base
}

// New returns the term bank format.
func New() *Format {
	return &Format{Base: formats.Base{Kind: lexicon.FormatTermBank, Entries: store.TableTermBank}}
}

// Import implements formats.Format.
func (f *Format) Import(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string) (lexicon.Dictionary, ingest.Result, error) {
	res, err := f.Run(ctx, p, d, path, Converter{})
	return d, res, err
}

// Lookup implements formats.Format.
func (f *Format) Lookup(ctx context.Context, st store.Store, opts lookup.Options, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	m := lookup.CJKMatcher{Table: f.Entries, Format: f.Kind, Reducer: stem.JapaneseReducer{}, Options: opts}
	return m.Match(ctx, st, dictKeys, text)
}

// Converter turns term bank files into entries.
type Converter struct{}

// Classify accepts term_bank_N.json files.
func (Converter) Classify(name string) ingest.Class {
	if bankPattern.MatchString(path.Base(name)) {
		return ingest.Class{Kind: "term_bank", Content: true}
	}
	return ingest.Class{}
}

// Convert implements ingest.Converter.
func (Converter) Convert(_ context.Context, _, name string, r io.Reader, sink *ingest.Sink) error {
	return jsonrows.Each(name, r, func(row int, raw json.RawMessage) error {
		e, err := ParseRow(raw)
		if err != nil {
			return &lexicon.ParseError{File: name, Line: row, Err: err}
		}
		sink.Entry(e)
		return nil
	})
}

// ParseRow decodes [head, reading, tags, rules, score, glossary...].
func ParseRow(raw json.RawMessage) (lexicon.Entry, error) {
	row, err := jsonrows.Array(raw)
	if err != nil {
		return lexicon.Entry{}, err
	}
	if len(row) < 5 {
		return lexicon.Entry{}, errors.New("row needs at least 5 elements")
	}
	head, err := jsonrows.String(row[0])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(0, "expression", err)
	}
	if strings.TrimSpace(head) == "" {
		return lexicon.Entry{}, jsonrows.Field(0, "expression", errors.New("empty"))
	}
	reading, err := jsonrows.OptionalString(row[1])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(1, "reading", err)
	}
	tags, err := jsonrows.OptionalString(row[2])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(2, "tags", err)
	}
	rules, err := jsonrows.OptionalString(row[3])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(3, "rules", err)
	}
	score, err := jsonrows.Number(row[4])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(4, "score", err)
	}
	meanings := make([]string, 0, len(row)-5)
	for i, g := range row[5:] {
		s, err := jsonrows.String(g)
		if err != nil {
			return lexicon.Entry{}, jsonrows.Field(i+5, "glossary", err)
		}
		meanings = append(meanings, s)
	}
	if reading == "" {
		reading = head
	}
	return lexicon.Entry{
		Head:          head,
		Pronunciation: reading,
		Meanings:      meanings,
		Tags:          tags,
		Rules:         rules,
		Frequency:     &score,
	}, nil
}
