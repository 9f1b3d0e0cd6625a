// Package memstore is an in-process store.Store for tests and embedding.
// Each index is a patricia trie from key to row ids.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/tchap/go-patricia/v2/patricia"
)

type entryTable struct {
	rows    map[int64]lexicon.Entry
	head    *patricia.Trie
	reading *patricia.Trie
	combo   *patricia.Trie
}

func newEntryTable() *entryTable {
	return &entryTable{
		rows:    map[int64]lexicon.Entry{},
		head:    patricia.NewTrie(),
		reading: patricia.NewTrie(),
		combo:   patricia.NewTrie(),
	}
}

func addID(t *patricia.Trie, key string, id int64) {
	if key == "" {
		return
	}
	p := patricia.Prefix(key)
	if item := t.Get(p); item != nil {
		ids := item.([]int64)
		if len(ids) > 0 && ids[len(ids)-1] == id {
			return
		}
		t.Set(p, append(ids, id))
		return
	}
	t.Insert(p, []int64{id})
}

func (t *entryTable) index(e lexicon.Entry) {
	addID(t.head, e.Head, e.ID)
	addID(t.reading, e.Variant, e.ID)
	addID(t.reading, e.Pronunciation, e.ID)
	for _, c := range e.TokenCombos {
		addID(t.combo, c, e.ID)
	}
}

func (t *entryTable) trie(i store.Index) (*patricia.Trie, error) {
	switch i {
	case store.IndexHead:
		return t.head, nil
	case store.IndexReading:
		return t.reading, nil
	case store.IndexCombo:
		return t.combo, nil
	}
	return nil, fmt.Errorf("unknown index %v", i)
}

// Store keeps every table in memory. The zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	lastDict int64
	lastRow  int64
	dicts    map[int64]lexicon.Dictionary
	entries  map[store.Table]*entryTable
	records  map[store.Table][]lexicon.Record
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{
		dicts:   map[int64]lexicon.Dictionary{},
		entries: map[store.Table]*entryTable{},
		records: map[store.Table][]lexicon.Record{},
	}
	for _, t := range store.EntryTables {
		s.entries[t] = newEntryTable()
	}
	return s
}

func (s *Store) CreateDictionary(_ context.Context, d lexicon.Dictionary) (lexicon.Dictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(d.ID) == "" {
		return d, lexicon.WrapStore("create dictionary", fmt.Errorf("id must be non-empty"))
	}
	for _, existing := range s.dicts {
		if existing.ID == d.ID {
			return d, lexicon.WrapStore("create dictionary", fmt.Errorf("dictionary id %q already exists", d.ID))
		}
	}
	if d.ImportedAt.IsZero() {
		d.ImportedAt = time.Now().UTC()
	}
	s.lastDict++
	d.Key = s.lastDict
	s.dicts[d.Key] = d
	return d, nil
}

func (s *Store) GetDictionary(_ context.Context, key int64) (lexicon.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dicts[key]
	if !ok {
		return d, fmt.Errorf("dictionary %d: %w", key, lexicon.ErrNotFound)
	}
	return d, nil
}

func (s *Store) UpdateDictionary(_ context.Context, d lexicon.Dictionary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.dicts[d.Key]
	if !ok {
		return fmt.Errorf("dictionary %d: %w", d.Key, lexicon.ErrNotFound)
	}
	d.ID, d.Format = old.ID, old.Format
	s.dicts[d.Key] = d
	return nil
}

func (s *Store) ListDictionaries(_ context.Context) ([]lexicon.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lexicon.Dictionary, 0, len(s.dicts))
	for _, d := range s.dicts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) DeleteDictionary(_ context.Context, key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dicts, key)
	return nil
}

func (s *Store) entryTable(t store.Table) (*entryTable, error) {
	et, ok := s.entries[t]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", t)
	}
	return et, nil
}

func (s *Store) InsertEntries(_ context.Context, table store.Table, entries []lexicon.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	et, err := s.entryTable(table)
	if err != nil {
		return lexicon.WrapStore("insert entries", err)
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Head) == "" {
			return lexicon.WrapStore("insert entries", fmt.Errorf("entry head must be non-empty"))
		}
	}
	for _, e := range entries {
		s.lastRow++
		e.ID = s.lastRow
		e = cloneEntry(e)
		et.rows[e.ID] = e
		et.index(e)
	}
	return nil
}

func (s *Store) QueryEntries(_ context.Context, table store.Table, index store.Index, anyOf []string, dictKeys []int64) ([]lexicon.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	et, err := s.entryTable(table)
	if err != nil {
		return nil, lexicon.WrapStore("query entries", err)
	}
	tr, err := et.trie(index)
	if err != nil {
		return nil, lexicon.WrapStore("query entries", err)
	}
	if len(anyOf) == 0 || len(dictKeys) == 0 {
		return nil, nil
	}
	var ids []int64
	seen := map[int64]bool{}
	for _, k := range anyOf {
		item := tr.Get(patricia.Prefix(k))
		if item == nil {
			continue
		}
		for _, id := range item.([]int64) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	var out []lexicon.Entry
	for _, id := range ids {
		e, ok := et.rows[id]
		if !ok || !slices.Contains(dictKeys, e.DictionaryKey) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (s *Store) DeleteEntries(_ context.Context, table store.Table, dictKey int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	et, err := s.entryTable(table)
	if err != nil {
		return lexicon.WrapStore("delete entries", err)
	}
	rebuilt := newEntryTable()
	for id, e := range et.rows {
		if e.DictionaryKey != dictKey {
			rebuilt.rows[id] = e
		}
	}
	ids := make([]int64, 0, len(rebuilt.rows))
	for id := range rebuilt.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		rebuilt.index(rebuilt.rows[id])
	}
	s.entries[table] = rebuilt
	return nil
}

func (s *Store) ClearTable(_ context.Context, table store.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case table.IsEntryTable():
		s.entries[table] = newEntryTable()
	case table.IsRecordTable():
		delete(s.records, table)
	default:
		return lexicon.WrapStore("clear table", fmt.Errorf("unknown table %q", table))
	}
	return nil
}

func (s *Store) InsertRecords(_ context.Context, table store.Table, records []lexicon.Record) error {
	if !table.IsRecordTable() {
		return lexicon.WrapStore("insert records", fmt.Errorf("unknown table %q", table))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.lastRow++
		r.ID = s.lastRow
		r.Data = slices.Clone(r.Data)
		s.records[table] = append(s.records[table], r)
	}
	return nil
}

func (s *Store) QueryRecords(_ context.Context, table store.Table, dictKey int64, keys []string) ([]lexicon.Record, error) {
	if !table.IsRecordTable() {
		return nil, lexicon.WrapStore("query records", fmt.Errorf("unknown table %q", table))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []lexicon.Record
	for _, r := range s.records[table] {
		if r.DictionaryKey != dictKey {
			continue
		}
		if len(keys) > 0 && !slices.Contains(keys, r.Key) {
			continue
		}
		r.Data = slices.Clone(r.Data)
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) DeleteRecords(_ context.Context, table store.Table, dictKey int64) error {
	if !table.IsRecordTable() {
		return lexicon.WrapStore("delete records", fmt.Errorf("unknown table %q", table))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[table] = slices.DeleteFunc(s.records[table], func(r lexicon.Record) bool {
		return r.DictionaryKey == dictKey
	})
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneEntry(e lexicon.Entry) lexicon.Entry {
	e.Meanings = slices.Clone(e.Meanings)
	e.TokenCombos = slices.Clone(e.TokenCombos)
	if e.Frequency != nil {
		f := *e.Frequency
		e.Frequency = &f
	}
	return e
}
