// Package ingest streams dictionary archives into a store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/japaniel/lexicard/pkg/archive"
	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
)

// ProgressFunc receives the import progress as a fraction in [0, 1].
// Errors it returns are logged and otherwise ignored.
type ProgressFunc func(fraction float64) error

// Class is the classification of an archive entry. An empty Kind skips
// the entry. Content marks entries that make an archive a dictionary.
type Class struct {
	Kind    string
	Content bool
}

// ErrNotContent is returned by Convert when an entry that classified as
// content turns out not to belong to the dictionary, such as a README next
// to a text export. The entry is skipped.
var ErrNotContent = errors.New("entry is not dictionary content")

// Converter turns archive entries of one format into rows.
type Converter interface {
	Classify(name string) Class
	// Convert reads one entry's stream and adds its rows to sink. Rows are
	// only committed when Convert returns nil.
	Convert(ctx context.Context, kind, name string, r io.Reader, sink *Sink) error
}

// Sink collects the rows converted from one archive entry.
type Sink struct {
	// ChunkSize is the read size line-based converters should use.
	ChunkSize int

	dictKey int64
	table   store.Table
	rows    []Row
	entries int
	records int
}

// DictionaryKey is the key rows are tagged with.
func (s *Sink) DictionaryKey() int64 { return s.dictKey }

// Entry adds a lexicon entry to the job's entry table.
func (s *Sink) Entry(e lexicon.Entry) {
	e.DictionaryKey = s.dictKey
	s.rows = append(s.rows, Row{Table: s.table, Entry: &e})
	s.entries++
}

// Record adds an auxiliary record to table.
func (s *Sink) Record(table store.Table, r lexicon.Record) {
	r.DictionaryKey = s.dictKey
	s.rows = append(s.rows, Row{Table: table, Record: &r})
	s.records++
}

// Job describes one dictionary import.
type Job struct {
	Format        lexicon.Format
	Path          string
	Table         store.Table
	DictionaryKey int64
	Converter     Converter
}

// Result summarizes a finished import.
type Result struct {
	EntryCount  int
	RecordCount int
}

// Pipeline imports archives one entry at a time.
type Pipeline struct {
	Store     store.Store
	BatchSize int
	ChunkSize int
	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called as the import advances. nil disables reporting.
	OnProgress ProgressFunc
}

// NewPipeline creates a Pipeline writing to st.
func NewPipeline(st store.Store) *Pipeline {
	return &Pipeline{
		Store:     st,
		BatchSize: 500,
		ChunkSize: archive.DefaultChunkSize,
	}
}

func (p *Pipeline) report(fraction float64) {
	if p.OnProgress == nil {
		return
	}
	if err := p.OnProgress(min(fraction, 1)); err != nil && p.Logger != nil {
		p.Logger.Warn("progress sink failed", "err", err)
	}
}

// Run opens job.Path and imports it.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	a, err := archive.Open(job.Path)
	if err != nil {
		return Result{}, err
	}
	return p.RunArchive(ctx, job, a)
}

// RunArchive imports an already opened archive. The archive is closed
// before RunArchive returns.
func (p *Pipeline) RunArchive(ctx context.Context, job Job, a archive.Archive) (res Result, err error) {
	defer a.Close()

	bw := NewBatchWriter(p.Store, p.BatchSize, 0)
	if p.Logger != nil {
		bw.OnError = func(e error) { p.Logger.Error("batch write failed", "path", job.Path, "err", e) }
	}
	defer func() {
		if cerr := bw.Close(); cerr != nil && err == nil && !errors.Is(cerr, ErrBatchWriterClosed) {
			err = cerr
		}
	}()

	total := a.Len()
	seenContent := false
	for done := 0; ; done++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e, err := a.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, &lexicon.ArchiveError{Path: job.Path, Err: err}
		}

		class := job.Converter.Classify(e.Name)
		if class.Kind == "" {
			if p.Logger != nil {
				p.Logger.Debug("skipping archive entry", "name", e.Name)
			}
			p.report(float64(done+1) / float64(total))
			continue
		}

		sink, err := p.convert(ctx, job, e, class.Kind, done, total)
		if errors.Is(err, ErrNotContent) {
			if p.Logger != nil {
				p.Logger.Debug("skipping non-dictionary entry", "name", e.Name)
			}
			p.report(float64(done+1) / float64(total))
			continue
		}
		if err != nil {
			return res, err
		}
		if class.Content {
			seenContent = true
		}
		if err := bw.Submit(sink.rows...); err != nil {
			return res, err
		}
		if err := bw.Err(); err != nil {
			return res, err
		}
		res.EntryCount += sink.entries
		res.RecordCount += sink.records
		if p.Logger != nil {
			p.Logger.Debug("converted archive entry", "name", e.Name, "entries", sink.entries, "records", sink.records)
		}
		p.report(float64(done+1) / float64(total))
	}

	if err := bw.Close(); err != nil {
		return res, err
	}
	if !seenContent {
		return res, &lexicon.EmptyDictionaryError{Format: job.Format, Path: job.Path}
	}
	return res, nil
}

func (p *Pipeline) convert(ctx context.Context, job Job, e *archive.Entry, kind string, done, total int) (*Sink, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pr := &progressReader{
		ctx:  ctx,
		r:    rc,
		size: e.Size,
		report: func(entryFraction float64) {
			p.report((float64(done) + entryFraction) / float64(total))
		},
	}
	sink := &Sink{ChunkSize: p.ChunkSize, dictKey: job.DictionaryKey, table: job.Table}
	if err := job.Converter.Convert(ctx, kind, e.Name, pr, sink); err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return sink, nil
}

// progressReader reports how much of an entry has been read and stops
// reading once ctx is canceled.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	size     int64
	read     int64
	reported float64
	report   func(float64)
}

func (r *progressReader) Read(b []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(b)
	r.read += int64(n)
	if r.size > 0 && n > 0 {
		f := min(float64(r.read)/float64(r.size), 1)
		if f-r.reported >= 0.01 {
			r.reported = f
			r.report(f)
		}
	}
	return n, err
}
