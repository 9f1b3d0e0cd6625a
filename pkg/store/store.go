// Package store defines the lexicon persistence boundary. Entries live in
// one table per dictionary format, auxiliary Yomitan rows in record tables,
// and every row carries the key of the dictionary that owns it.
package store

import (
	"context"
	"fmt"

	"github.com/japaniel/lexicard/pkg/lexicon"
)

// Table names a store table.
type Table string

// Entry tables, one per format.
const (
	TableDictCC       Table = "dictcc_entries"
	TableCEDict       Table = "cedict_entries"
	TableTermBank     Table = "termbank_entries"
	TableYomitanTerms Table = "yomitan_terms"
)

// Record tables holding Yomitan auxiliary banks.
const (
	TableYomitanTermMeta  Table = "yomitan_term_meta"
	TableYomitanKanji     Table = "yomitan_kanji"
	TableYomitanKanjiMeta Table = "yomitan_kanji_meta"
	TableYomitanTags      Table = "yomitan_tags"
	TableYomitanIndex     Table = "yomitan_index"
	TableYomitanStyles    Table = "yomitan_styles"
	TableYomitanMedia     Table = "yomitan_media"
)

// EntryTables lists every entry table.
var EntryTables = []Table{TableDictCC, TableCEDict, TableTermBank, TableYomitanTerms}

// RecordTables lists every record table.
var RecordTables = []Table{
	TableYomitanTermMeta, TableYomitanKanji, TableYomitanKanjiMeta,
	TableYomitanTags, TableYomitanIndex, TableYomitanStyles, TableYomitanMedia,
}

// IsEntryTable reports whether t holds lexicon entries.
func (t Table) IsEntryTable() bool {
	for _, e := range EntryTables {
		if e == t {
			return true
		}
	}
	return false
}

// IsRecordTable reports whether t holds auxiliary records.
func (t Table) IsRecordTable() bool {
	for _, r := range RecordTables {
		if r == t {
			return true
		}
	}
	return false
}

// EntryTable returns the entry table of a format.
func EntryTable(f lexicon.Format) (Table, error) {
	switch f {
	case lexicon.FormatDictCC:
		return TableDictCC, nil
	case lexicon.FormatCEDict:
		return TableCEDict, nil
	case lexicon.FormatTermBank:
		return TableTermBank, nil
	case lexicon.FormatYomitan:
		return TableYomitanTerms, nil
	}
	return "", fmt.Errorf("%w: %q", lexicon.ErrUnknownFormat, f)
}

// Index selects the column a query matches against.
type Index int

const (
	// IndexHead matches Entry.Head.
	IndexHead Index = iota
	// IndexReading matches Entry.Variant or Entry.Pronunciation.
	IndexReading
	// IndexCombo matches any of Entry.TokenCombos.
	IndexCombo
)

func (i Index) String() string {
	switch i {
	case IndexHead:
		return "head"
	case IndexReading:
		return "reading"
	case IndexCombo:
		return "combo"
	}
	return fmt.Sprintf("Index(%d)", int(i))
}

// Store is implemented by lexicon backends. Implementations must be safe
// for concurrent use. Queries never return an error for missing rows.
type Store interface {
	// CreateDictionary stores d and returns it with Key assigned.
	CreateDictionary(ctx context.Context, d lexicon.Dictionary) (lexicon.Dictionary, error)
	// GetDictionary returns lexicon.ErrNotFound for unknown keys.
	GetDictionary(ctx context.Context, key int64) (lexicon.Dictionary, error)
	UpdateDictionary(ctx context.Context, d lexicon.Dictionary) error
	ListDictionaries(ctx context.Context) ([]lexicon.Dictionary, error)
	// DeleteDictionary removes only the metadata row.
	DeleteDictionary(ctx context.Context, key int64) error

	InsertEntries(ctx context.Context, table Table, entries []lexicon.Entry) error
	// QueryEntries returns the entries of the given dictionaries whose index
	// column equals any of anyOf. Empty anyOf or dictKeys yield nothing.
	QueryEntries(ctx context.Context, table Table, index Index, anyOf []string, dictKeys []int64) ([]lexicon.Entry, error)
	DeleteEntries(ctx context.Context, table Table, dictKey int64) error
	// ClearTable removes every row of an entry or record table.
	ClearTable(ctx context.Context, table Table) error

	InsertRecords(ctx context.Context, table Table, records []lexicon.Record) error
	// QueryRecords returns the records of dictKey, restricted to keys when
	// keys is not empty.
	QueryRecords(ctx context.Context, table Table, dictKey int64, keys []string) ([]lexicon.Record, error)
	DeleteRecords(ctx context.Context, table Table, dictKey int64) error

	Close() error
}
