// Package engine ties the lexicon store, the format registry and the
// import pipeline together behind the operations callers use: lookup,
// import, delete and listing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/japaniel/lexicard/pkg/config"
	"github.com/japaniel/lexicard/pkg/formats"
	"github.com/japaniel/lexicard/pkg/formats/cedict"
	"github.com/japaniel/lexicard/pkg/formats/dictcc"
	"github.com/japaniel/lexicard/pkg/formats/termbank"
	"github.com/japaniel/lexicard/pkg/formats/yomitan"
	"github.com/japaniel/lexicard/pkg/ingest"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/lookup"
	"github.com/japaniel/lexicard/pkg/metrics"
	"github.com/japaniel/lexicard/pkg/store"
	"golang.org/x/sync/errgroup"
)

// DefaultRegistry registers the four supported formats.
func DefaultRegistry() *formats.Registry {
	return formats.NewRegistry(dictcc.New(), cedict.New(), termbank.New(), yomitan.New())
}

// Engine runs lookups and imports against one store.
type Engine struct {
	store    store.Store
	registry *formats.Registry
	cfg      *config.Config

	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// Metrics records import and lookup metrics. nil disables them.
	Metrics *metrics.Metrics
	// Morphology supplies Japanese base forms when lookup.use_morphology
	// is set.
	Morphology lookup.Morphology
}

// New creates an engine over st. A nil cfg selects config.Default().
func New(st store.Store, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{store: st, registry: DefaultRegistry(), cfg: cfg}
}

// Store returns the engine's store.
func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) lookupOptions() lookup.Options {
	opts := lookup.Options{
		MaxLength:       e.cfg.Lookup.CandidateLength(),
		MaxPhraseTokens: e.cfg.Lookup.MaxPhraseTokens,
	}
	if e.cfg.Lookup.UseMorphology {
		opts.Morphology = e.Morphology
	}
	return opts
}

// Lookup matches text against the dictionaries whose IDs are listed in
// activeIDs. Unknown IDs are ignored. Finding nothing is not an error;
// only store failures are reported.
func (e *Engine) Lookup(ctx context.Context, activeIDs []string, text string) (lexicon.TokensTranslations, error) {
	start := time.Now()
	res, err := e.lookup(ctx, activeIDs, text)
	e.Metrics.RecordLookup(len(res), time.Since(start), err)
	return res, err
}

func (e *Engine) lookup(ctx context.Context, activeIDs []string, text string) (lexicon.TokensTranslations, error) {
	if text == "" || len(activeIDs) == 0 {
		return nil, nil
	}
	dicts, err := e.store.ListDictionaries(ctx)
	if err != nil {
		return nil, lexicon.WrapStore("list dictionaries", err)
	}
	byID := make(map[string]lexicon.Dictionary, len(dicts))
	for _, d := range dicts {
		byID[d.ID] = d
	}

	var order []lexicon.Format
	keys := map[lexicon.Format][]int64{}
	for _, id := range activeIDs {
		d, ok := byID[id]
		if !ok {
			continue
		}
		if _, seen := keys[d.Format]; !seen {
			order = append(order, d.Format)
		}
		keys[d.Format] = append(keys[d.Format], d.Key)
	}

	opts := e.lookupOptions()
	results := make([]lexicon.TokensTranslations, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range order {
		impl, err := e.registry.Get(f)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("skipping dictionaries of unregistered format", "format", f)
			}
			continue
		}
		g.Go(func() error {
			r, err := impl.Lookup(gctx, e.store, opts, keys[f], text)
			if err != nil {
				return lexicon.WrapStore("lookup "+string(f), err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lookup.Merge(results...), nil
}

// Descriptor names a dictionary to import.
type Descriptor struct {
	// ID is the external identifier; a random UUID is used when empty.
	ID     string
	Name   string
	Format lexicon.Format
}

// ImportResult describes a finished import.
type ImportResult struct {
	Dictionary  lexicon.Dictionary
	EntryCount  int
	RecordCount int
}

// ImportDictionary creates a dictionary for desc and imports the archive at
// sourcePath into it. On failure the partial dictionary is deleted when
// import.rollback_on_error is set.
func (e *Engine) ImportDictionary(ctx context.Context, desc Descriptor, sourcePath string, progress ingest.ProgressFunc) (ImportResult, error) {
	impl, err := e.registry.Get(desc.Format)
	if err != nil {
		return ImportResult{}, err
	}
	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}

	d, err := e.store.CreateDictionary(ctx, lexicon.Dictionary{ID: desc.ID, Format: desc.Format, Name: desc.Name})
	if err != nil {
		return ImportResult{}, lexicon.WrapStore("create dictionary", err)
	}

	p := ingest.NewPipeline(e.store)
	p.BatchSize = e.cfg.Import.BatchSize
	p.ChunkSize = e.cfg.Import.ChunkSize
	p.Logger = e.Logger
	p.OnProgress = progress

	start := time.Now()
	imported, res, err := impl.Import(ctx, p, d, sourcePath)
	if err != nil {
		e.Metrics.RecordImport(string(desc.Format), 0, time.Since(start), err)
		if e.cfg.Import.RollbackOnError {
			e.rollback(ctx, d)
		}
		return ImportResult{Dictionary: d}, fmt.Errorf("import dictionary %s: %w", d.ID, err)
	}

	if imported.Name == "" {
		imported.Name = filepath.Base(sourcePath)
	}
	imported.EntryCount = res.EntryCount
	if err := e.store.UpdateDictionary(ctx, imported); err != nil {
		return ImportResult{Dictionary: imported}, lexicon.WrapStore("update dictionary", err)
	}
	e.Metrics.RecordImport(string(desc.Format), res.EntryCount, time.Since(start), nil)
	if e.Logger != nil {
		e.Logger.Info("imported dictionary",
			"id", imported.ID, "name", imported.Name, "format", imported.Format,
			"entries", res.EntryCount, "records", res.RecordCount, "took", time.Since(start).Round(time.Millisecond))
	}
	return ImportResult{Dictionary: imported, EntryCount: res.EntryCount, RecordCount: res.RecordCount}, nil
}

// rollback removes a partially imported dictionary row by row. Tables are
// never cleared here since sibling imports may be writing to them.
func (e *Engine) rollback(ctx context.Context, d lexicon.Dictionary) {
	ctx = context.WithoutCancel(ctx)
	impl, err := e.registry.Get(d.Format)
	if err == nil {
		err = impl.Delete(ctx, e.store, d.Key, false)
	}
	if err == nil {
		err = lexicon.WrapStore("delete dictionary", e.store.DeleteDictionary(ctx, d.Key))
	}
	if err != nil && e.Logger != nil {
		e.Logger.Error("rollback of partial dictionary failed", "id", d.ID, "err", err)
	}
}

// ImportJob is one import of ImportAll.
type ImportJob struct {
	Descriptor Descriptor
	Path       string
	Progress   ingest.ProgressFunc
}

// ImportAll runs jobs on a pool of import.workers goroutines. Results are
// returned in job order; the error joins every failed job's error.
func (e *Engine) ImportAll(ctx context.Context, jobs []ImportJob) ([]ImportResult, error) {
	results := make([]ImportResult, len(jobs))
	pool := ingest.NewWorkerPool(e.cfg.Import.Workers, len(jobs))
	pool.Start(ctx)
	for i, job := range jobs {
		pool.Submit(ctx, func(ctx context.Context) error {
			var err error
			results[i], err = e.ImportDictionary(ctx, job.Descriptor, job.Path, job.Progress)
			return err
		})
	}

	var errs []error
	for i, err := range pool.Wait() {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", jobs[i].Path, err))
		}
	}
	return results, errors.Join(errs...)
}

// DeleteDictionary removes dictionary key of format f from st. all is the
// current dictionary list; when key is the last dictionary of its format
// the format's tables are cleared instead of deleted row by row.
func DeleteDictionary(ctx context.Context, st store.Store, all []lexicon.Dictionary, key int64, f lexicon.Format) error {
	return formats.DeleteDictionary(ctx, st, DefaultRegistry(), all, key, f)
}

// DeleteDictionary removes the dictionary with the given key.
func (e *Engine) DeleteDictionary(ctx context.Context, key int64) error {
	all, err := e.store.ListDictionaries(ctx)
	if err != nil {
		return lexicon.WrapStore("list dictionaries", err)
	}
	for _, d := range all {
		if d.Key == key {
			return formats.DeleteDictionary(ctx, e.store, e.registry, all, key, d.Format)
		}
	}
	return fmt.Errorf("dictionary %d: %w", key, lexicon.ErrNotFound)
}

// Dictionary returns the dictionary with external id.
func (e *Engine) Dictionary(ctx context.Context, id string) (lexicon.Dictionary, error) {
	all, err := e.Dictionaries(ctx)
	if err != nil {
		return lexicon.Dictionary{}, err
	}
	for _, d := range all {
		if d.ID == id {
			return d, nil
		}
	}
	return lexicon.Dictionary{}, fmt.Errorf("dictionary %q: %w", id, lexicon.ErrNotFound)
}

// Dictionaries lists every imported dictionary.
func (e *Engine) Dictionaries(ctx context.Context) ([]lexicon.Dictionary, error) {
	all, err := e.store.ListDictionaries(ctx)
	if err != nil {
		return nil, lexicon.WrapStore("list dictionaries", err)
	}
	return all, nil
}
