// Package formats defines the per-format behaviour of dictionary imports,
// lookups and deletes, and the registry dispatching between them.
package formats

import (
	"context"
	"fmt"
	"slices"

	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/lookup"
	"github.com/japaniel/lexicard/pkg/store"
)

// Format is one dictionary format.
type Format interface {
	Type() lexicon.Format
	// Table is the entry table of the format.
	Table() store.Table
	// Import streams the archive at path into d, which must already exist
	// in the pipeline's store. The returned dictionary carries metadata
	// read from the archive.
	Import(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string) (lexicon.Dictionary, ingest.Result, error)
	// Lookup matches text against the dictionaries in dictKeys.
	Lookup(ctx context.Context, st store.Store, opts lookup.Options, dictKeys []int64, text string) (lexicon.TokensTranslations, error)
	// Delete removes the rows of dictionary key. When last is set, no other
	// dictionary of the format remains and the tables are cleared instead.
	Delete(ctx context.Context, st store.Store, key int64, last bool) error
}

// Base implements the table bookkeeping shared by every format.
type Base struct {
	Kind    lexicon.Format
	Entries store.Table
	Records []store.Table
}

func (b Base) Type() lexicon.Format { return b.Kind }

func (b Base) Table() store.Table { return b.Entries }

// Delete implements Format.
func (b Base) Delete(ctx context.Context, st store.Store, key int64, last bool) error {
	if last {
		if err := st.ClearTable(ctx, b.Entries); err != nil {
			return err
		}
		for _, t := range b.Records {
			if err := st.ClearTable(ctx, t); err != nil {
				return err
			}
		}
		return nil
	}
	if err := st.DeleteEntries(ctx, b.Entries, key); err != nil {
		return err
	}
	for _, t := range b.Records {
		if err := st.DeleteRecords(ctx, t, key); err != nil {
			return err
		}
	}
	return nil
}

// Run imports path with conv through p.
func (b Base) Run(ctx context.Context, p *ingest.Pipeline, d lexicon.Dictionary, path string, conv ingest.Converter) (ingest.Result, error) {
	return p.Run(ctx, ingest.Job{
		Format:        b.Kind,
		Path:          path,
		Table:         b.Entries,
		DictionaryKey: d.Key,
		Converter:     conv,
	})
}

// Registry maps format names to their implementation.
type Registry struct {
	formats map[lexicon.Format]Format
}

// NewRegistry registers fs. A later format replaces an earlier one of the
// same type.
func NewRegistry(fs ...Format) *Registry {
	r := &Registry{formats: make(map[lexicon.Format]Format, len(fs))}
	for _, f := range fs {
		r.formats[f.Type()] = f
	}
	return r
}

// Get returns the implementation of f.
func (r *Registry) Get(f lexicon.Format) (Format, error) {
	impl, ok := r.formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", lexicon.ErrUnknownFormat, f)
	}
	return impl, nil
}

// Types returns the registered formats in name order.
func (r *Registry) Types() []lexicon.Format {
	out := make([]lexicon.Format, 0, len(r.formats))
	for f := range r.formats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// DeleteDictionary removes dictionary key of format f from st, clearing
// the format's tables when all lists no other dictionary of f.
func DeleteDictionary(ctx context.Context, st store.Store, r *Registry, all []lexicon.Dictionary, key int64, f lexicon.Format) error {
	impl, err := r.Get(f)
	if err != nil {
		return err
	}
	last := true
	for _, d := range all {
		if d.Key != key && d.Format == f {
			last = false
			break
		}
	}
	if err := impl.Delete(ctx, st, key, last); err != nil {
		return lexicon.WrapStore("delete dictionary rows", err)
	}
	if err := st.DeleteDictionary(ctx, key); err != nil {
		return lexicon.WrapStore("delete dictionary", err)
	}
	return nil
}
