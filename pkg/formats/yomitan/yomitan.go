// Package yomitan imports Yomitan (formerly Yomichan) dictionary archives
// of format versions 1 to 3.
package yomitan

import (
	"context"
	"encoding/json"
	"fmt"
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

// Entry kinds of a Yomitan archive.
const (
	KindIndex         = "index"
	KindTermBank      = "term_bank"
	KindTermMetaBank  = "term_meta_bank"
	KindKanjiBank     = "kanji_bank"
	KindKanjiMetaBank = "kanji_meta_bank"
	KindTagBank       = "tag_bank"
	KindStyles        = "styles"
	KindImage         = "image"
)

var bankPattern = regexp.MustCompile(`^(term_bank|term_meta_bank|kanji_bank|kanji_meta_bank|tag_bank)_\d+\.json$`)

var mediaTypes = map[string]string{
	".apng": "image/apng",
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// Format is the Yomitan format.
type Format struct {
	formats.Base
}

// New returns the Yomitan format.
func New() *Format {
	return &Format{Base: formats.Base{
		Kind:    lexicon.FormatYomitan,
		Entries: store.TableYomitanTerms,
		Records: store.RecordTables,
	}}
}

// Import reads index.json first to learn the format version, then streams
// the archive. The dictionary name defaults to the index title.
func (f *Format) Import(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string) (lexicon.Dictionary, ingest.Result, error) {
	idx, err := ReadIndex(path)
	if err != nil {
		return d, ingest.Result{}, err
	}
	if d.Name == "" {
		d.Name = idx.Title
	}
	d.Revision = idx.Revision
	if p.Logger != nil {
		p.Logger.Info("importing yomitan dictionary", "title", idx.Title, "revision", idx.Revision, "format", idx.Version)
	}
	res, err := f.Run(ctx, p, d, path, &Converter{Version: idx.Version})
	return d, res, err
}

// Lookup implements formats.Format.
func (f *Format) Lookup(ctx context.Context, st store.Store, opts lookup.Options, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	m := lookup.CJKMatcher{Table: f.Entries, Format: f.Kind, Reducer: stem.JapaneseReducer{}, Options: opts}
	return m.Match(ctx, st, dictKeys, text)
}

// Converter validates and converts the entries of one archive.
type Converter struct {
	Version int
}

// Classify implements ingest.Converter.
func (c *Converter) Classify(name string) ingest.Class {
	if name == indexFile {
		return ingest.Class{Kind: KindIndex}
	}
	if name == "styles.css" {
		return ingest.Class{Kind: KindStyles}
	}
	if m := bankPattern.FindStringSubmatch(name); m != nil {
		return ingest.Class{Kind: m[1], Content: m[1] != KindTagBank}
	}
	if _, ok := mediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return ingest.Class{Kind: KindImage}
	}
	return ingest.Class{}
}

// Convert implements ingest.Converter.
func (c *Converter) Convert(_ context.Context, kind, name string, r io.Reader, sink *ingest.Sink) error {
	switch kind {
	case KindIndex:
		return storeRaw(sink, store.TableYomitanIndex, name, "application/json", r)
	case KindStyles:
		return storeRaw(sink, store.TableYomitanStyles, name, "text/css", r)
	case KindImage:
		return storeRaw(sink, store.TableYomitanMedia, name, mediaTypes[strings.ToLower(path.Ext(name))], r)
	}

	row, table, err := c.rowParser(kind, name)
	if err != nil {
		return err
	}
	return jsonrows.Each(name, r, func(n int, raw json.RawMessage) error {
		if table == store.TableYomitanTerms {
			e, err := c.parseTerm(raw)
			if err != nil {
				return c.invalid(name, n, err)
			}
			sink.Entry(e)
			return nil
		}
		key, err := row(raw)
		if err != nil {
			return c.invalid(name, n, err)
		}
		sink.Record(table, lexicon.Record{Key: key, MediaType: "application/json", Data: append([]byte(nil), raw...)})
		return nil
	})
}

func (c *Converter) invalid(name string, row int, err error) error {
	return &lexicon.SchemaValidationError{Version: c.Version, File: name, Row: row, Reason: err.Error()}
}

// rowParser returns the validator of a record bank and its table. Term
// banks are handled by parseTerm and only report their table.
func (c *Converter) rowParser(kind, name string) (func(json.RawMessage) (string, error), store.Table, error) {
	switch kind {
	case KindTermBank:
		return nil, store.TableYomitanTerms, nil
	case KindKanjiBank:
		return c.parseKanji, store.TableYomitanKanji, nil
	}
	if c.Version < 2 {
		return nil, "", &lexicon.SchemaValidationError{
			Version: c.Version,
			File:    name,
			Reason:  fmt.Sprintf("%s requires format 2 or later", kind),
		}
	}
	switch kind {
	case KindTermMetaBank:
		return parseTermMeta, store.TableYomitanTermMeta, nil
	case KindKanjiMetaBank:
		return parseKanjiMeta, store.TableYomitanKanjiMeta, nil
	case KindTagBank:
		return parseTag, store.TableYomitanTags, nil
	}
	return nil, "", fmt.Errorf("unknown entry kind %q", kind)
}

func storeRaw(sink *ingest.Sink, table store.Table, name, mediaType string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	sink.Record(table, lexicon.Record{Key: name, MediaType: mediaType, Data: b})
	return nil
}
