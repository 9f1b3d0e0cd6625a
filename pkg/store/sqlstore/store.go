package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/vmihailenco/msgpack/v5"
)

// maxParams keeps IN lists under SQLite's bound variable limit.
const maxParams = 400

// comboSep separates combos in the group_concat column.
const comboSep = "\x1f"

// Store is a SQLite backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, lexicon.WrapStore("open", err)
	}
	// One connection keeps a single in-memory database and serializes writers.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates it.
func New(db *sql.DB) (*Store, error) {
	if err := InitDB(db); err != nil {
		return nil, lexicon.WrapStore("init", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return lexicon.WrapStore("close", s.db.Close())
}

func checkTable(t store.Table, entries bool) error {
	if entries && !t.IsEntryTable() || !entries && !t.IsRecordTable() {
		return fmt.Errorf("unknown table %q", t)
	}
	return nil
}

// CreateDictionary inserts d and returns it with Key set.
func (s *Store) CreateDictionary(ctx context.Context, d lexicon.Dictionary) (lexicon.Dictionary, error) {
	if strings.TrimSpace(d.ID) == "" {
		return d, lexicon.WrapStore("create dictionary", fmt.Errorf("id must be non-empty"))
	}
	if d.ImportedAt.IsZero() {
		d.ImportedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dictionaries (id, type, name, revision, entry_count, imported_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Format), d.Name, d.Revision, d.EntryCount, d.ImportedAt)
	if err != nil {
		return d, lexicon.WrapStore("create dictionary", err)
	}
	d.Key, err = res.LastInsertId()
	if err != nil {
		return d, lexicon.WrapStore("create dictionary", err)
	}
	return d, nil
}

const dictionaryColumns = `key, id, type, name, revision, entry_count, imported_at`

func scanDictionary(sc interface{ Scan(...any) error }) (lexicon.Dictionary, error) {
	var d lexicon.Dictionary
	var typ string
	var at sql.NullTime
	if err := sc.Scan(&d.Key, &d.ID, &typ, &d.Name, &d.Revision, &d.EntryCount, &at); err != nil {
		return d, err
	}
	d.Format = lexicon.Format(typ)
	if at.Valid {
		d.ImportedAt = at.Time
	}
	return d, nil
}

// GetDictionary returns the dictionary with the given key.
func (s *Store) GetDictionary(ctx context.Context, key int64) (lexicon.Dictionary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dictionaryColumns+` FROM dictionaries WHERE key = ?`, key)
	d, err := scanDictionary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("dictionary %d: %w", key, lexicon.ErrNotFound)
	}
	if err != nil {
		return d, lexicon.WrapStore("get dictionary", err)
	}
	return d, nil
}

// UpdateDictionary overwrites the mutable metadata of d.
func (s *Store) UpdateDictionary(ctx context.Context, d lexicon.Dictionary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dictionaries SET name = ?, revision = ?, entry_count = ?, imported_at = ? WHERE key = ?`,
		d.Name, d.Revision, d.EntryCount, d.ImportedAt, d.Key)
	if err != nil {
		return lexicon.WrapStore("update dictionary", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dictionary %d: %w", d.Key, lexicon.ErrNotFound)
	}
	return nil
}

// ListDictionaries returns all dictionaries ordered by key.
func (s *Store) ListDictionaries(ctx context.Context) ([]lexicon.Dictionary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+dictionaryColumns+` FROM dictionaries ORDER BY key`)
	if err != nil {
		return nil, lexicon.WrapStore("list dictionaries", err)
	}
	defer rows.Close()
	var out []lexicon.Dictionary
	for rows.Next() {
		d, err := scanDictionary(rows)
		if err != nil {
			return nil, lexicon.WrapStore("list dictionaries", err)
		}
		out = append(out, d)
	}
	return out, lexicon.WrapStore("list dictionaries", rows.Err())
}

// DeleteDictionary removes the metadata row of key.
func (s *Store) DeleteDictionary(ctx context.Context, key int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dictionaries WHERE key = ?`, key)
	return lexicon.WrapStore("delete dictionary", err)
}

// InsertEntries writes entries and their combos in one transaction.
func (s *Store) InsertEntries(ctx context.Context, table store.Table, entries []lexicon.Entry) error {
	if err := checkTable(table, true); err != nil {
		return lexicon.WrapStore("insert entries", err)
	}
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lexicon.WrapStore("insert entries", fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	if err := insertEntries(ctx, tx, table, entries); err != nil {
		return lexicon.WrapStore("insert entries", err)
	}
	if err := tx.Commit(); err != nil {
		return lexicon.WrapStore("insert entries", fmt.Errorf("commit %d entries: %w", len(entries), err))
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, table store.Table, entries []lexicon.Entry) error {
	entryStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(dictionary_key, head, variant, pronunciation, meanings, tags, rules, frequency, search_tokens_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer entryStmt.Close()
	comboStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s_combos (entry_id, dictionary_key, combo) VALUES (?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer comboStmt.Close()

	for _, e := range entries {
		if strings.TrimSpace(e.Head) == "" {
			return fmt.Errorf("entry head must be non-empty")
		}
		meanings, err := msgpack.Marshal(e.Meanings)
		if err != nil {
			return fmt.Errorf("encode meanings of %q: %w", e.Head, err)
		}
		var freq sql.NullFloat64
		if e.Frequency != nil {
			freq = sql.NullFloat64{Float64: *e.Frequency, Valid: true}
		}
		res, err := entryStmt.ExecContext(ctx, e.DictionaryKey, e.Head, e.Variant, e.Pronunciation,
			meanings, e.Tags, e.Rules, freq, e.SearchTokensCount)
		if err != nil {
			return fmt.Errorf("insert %q: %w", e.Head, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, c := range e.TokenCombos {
			if _, err := comboStmt.ExecContext(ctx, id, e.DictionaryKey, c); err != nil {
				return fmt.Errorf("insert combo %q: %w", c, err)
			}
		}
	}
	return nil
}

// QueryEntries looks up entries by index. Keys are queried in chunks and
// results deduplicated by entry id, in first-seen order.
func (s *Store) QueryEntries(ctx context.Context, table store.Table, index store.Index, anyOf []string, dictKeys []int64) ([]lexicon.Entry, error) {
	if err := checkTable(table, true); err != nil {
		return nil, lexicon.WrapStore("query entries", err)
	}
	if len(anyOf) == 0 || len(dictKeys) == 0 {
		return nil, nil
	}
	keyParams, keyArgs := placeholders(dictKeys)

	var out []lexicon.Entry
	seen := map[int64]bool{}
	for start := 0; start < len(anyOf); start += maxParams {
		chunk := anyOf[start:min(start+maxParams, len(anyOf))]
		valParams, valArgs := placeholders(chunk)

		var where string
		var args []any
		switch index {
		case store.IndexHead:
			where = fmt.Sprintf(`e.head IN (%s)`, valParams)
			args = valArgs
		case store.IndexReading:
			where = fmt.Sprintf(`(e.variant IN (%[1]s) OR e.pronunciation IN (%[1]s))`, valParams)
			args = append(append(args, valArgs...), valArgs...)
		case store.IndexCombo:
			where = fmt.Sprintf(`e.id IN (SELECT entry_id FROM %s_combos WHERE combo IN (%s) AND dictionary_key IN (%s))`,
				table, valParams, keyParams)
			args = append(append(args, valArgs...), keyArgs...)
		default:
			return nil, lexicon.WrapStore("query entries", fmt.Errorf("unknown index %v", index))
		}
		args = append(args, keyArgs...)

		q := fmt.Sprintf(`SELECT e.id, e.dictionary_key, e.head, e.variant, e.pronunciation, e.meanings,
			e.tags, e.rules, e.frequency, e.search_tokens_count,
			(SELECT group_concat(c.combo, char(31)) FROM %[1]s_combos c WHERE c.entry_id = e.id)
			FROM %[1]s e WHERE %[2]s AND e.dictionary_key IN (%[3]s) ORDER BY e.id`, table, where, keyParams)
		entries, err := queryEntries(ctx, s.db, q, args)
		if err != nil {
			return nil, lexicon.WrapStore("query entries", err)
		}
		for _, e := range entries {
			if !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func queryEntries(ctx context.Context, db DBExecutor, q string, args []any) ([]lexicon.Entry, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []lexicon.Entry
	for rows.Next() {
		var e lexicon.Entry
		var meanings []byte
		var freq sql.NullFloat64
		var combos sql.NullString
		if err := rows.Scan(&e.ID, &e.DictionaryKey, &e.Head, &e.Variant, &e.Pronunciation, &meanings,
			&e.Tags, &e.Rules, &freq, &e.SearchTokensCount, &combos); err != nil {
			return nil, err
		}
		if len(meanings) > 0 {
			if err := msgpack.Unmarshal(meanings, &e.Meanings); err != nil {
				return nil, fmt.Errorf("decode meanings of %d: %w", e.ID, err)
			}
		}
		if freq.Valid {
			f := freq.Float64
			e.Frequency = &f
		}
		if combos.Valid && combos.String != "" {
			e.TokenCombos = strings.Split(combos.String, comboSep)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEntries removes the entries of one dictionary.
func (s *Store) DeleteEntries(ctx context.Context, table store.Table, dictKey int64) error {
	if err := checkTable(table, true); err != nil {
		return lexicon.WrapStore("delete entries", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lexicon.WrapStore("delete entries", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_combos WHERE dictionary_key = ?`, table), dictKey); err != nil {
		return lexicon.WrapStore("delete entries", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dictionary_key = ?`, table), dictKey); err != nil {
		return lexicon.WrapStore("delete entries", err)
	}
	return lexicon.WrapStore("delete entries", tx.Commit())
}

// ClearTable removes every row of table.
func (s *Store) ClearTable(ctx context.Context, table store.Table) error {
	if !table.IsEntryTable() && !table.IsRecordTable() {
		return lexicon.WrapStore("clear table", fmt.Errorf("unknown table %q", table))
	}
	if table.IsEntryTable() {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_combos`, table)); err != nil {
			return lexicon.WrapStore("clear table", err)
		}
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	return lexicon.WrapStore("clear table", err)
}

// InsertRecords writes records in one transaction.
func (s *Store) InsertRecords(ctx context.Context, table store.Table, records []lexicon.Record) error {
	if err := checkTable(table, false); err != nil {
		return lexicon.WrapStore("insert records", err)
	}
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lexicon.WrapStore("insert records", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (dictionary_key, key, media_type, data) VALUES (?, ?, ?, ?)`, table))
	if err != nil {
		return lexicon.WrapStore("insert records", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.DictionaryKey, r.Key, r.MediaType, r.Data); err != nil {
			return lexicon.WrapStore("insert records", fmt.Errorf("insert %q: %w", r.Key, err))
		}
	}
	return lexicon.WrapStore("insert records", tx.Commit())
}

// QueryRecords returns records of dictKey, optionally limited to keys.
func (s *Store) QueryRecords(ctx context.Context, table store.Table, dictKey int64, keys []string) ([]lexicon.Record, error) {
	if err := checkTable(table, false); err != nil {
		return nil, lexicon.WrapStore("query records", err)
	}
	base := fmt.Sprintf(`SELECT id, dictionary_key, key, media_type, data FROM %s WHERE dictionary_key = ?`, table)
	if len(keys) == 0 {
		recs, err := queryRecords(ctx, s.db, base+` ORDER BY id`, []any{dictKey})
		return recs, lexicon.WrapStore("query records", err)
	}
	var out []lexicon.Record
	for start := 0; start < len(keys); start += maxParams {
		chunk := keys[start:min(start+maxParams, len(keys))]
		params, args := placeholders(chunk)
		recs, err := queryRecords(ctx, s.db, base+` AND key IN (`+params+`) ORDER BY id`, append([]any{dictKey}, args...))
		if err != nil {
			return nil, lexicon.WrapStore("query records", err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func queryRecords(ctx context.Context, db DBExecutor, q string, args []any) ([]lexicon.Record, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []lexicon.Record
	for rows.Next() {
		var r lexicon.Record
		if err := rows.Scan(&r.ID, &r.DictionaryKey, &r.Key, &r.MediaType, &r.Data); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecords removes the records of one dictionary.
func (s *Store) DeleteRecords(ctx context.Context, table store.Table, dictKey int64) error {
	if err := checkTable(table, false); err != nil {
		return lexicon.WrapStore("delete records", err)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dictionary_key = ?`, table), dictKey)
	return lexicon.WrapStore("delete records", err)
}

func placeholders[T any](vals []T) (string, []any) {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(vals)), ","), args
}
