// Package sqlstore implements store.Store on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/japaniel/lexicard/pkg/store"
	_ "github.com/mattn/go-sqlite3"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const dictionariesSQL = `
CREATE TABLE IF NOT EXISTS dictionaries (
	key         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	type        TEXT NOT NULL,
	name        TEXT NOT NULL,
	revision    TEXT NOT NULL DEFAULT '',
	entry_count INTEGER NOT NULL DEFAULT 0,
	imported_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_dictionaries_type ON dictionaries(type);
`

const entryTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_key      INTEGER NOT NULL,
	head                TEXT NOT NULL,
	variant             TEXT NOT NULL DEFAULT '',
	pronunciation       TEXT NOT NULL DEFAULT '',
	meanings            BLOB,
	tags                TEXT NOT NULL DEFAULT '',
	rules               TEXT NOT NULL DEFAULT '',
	frequency           REAL,
	search_tokens_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_head ON %[1]s(head);
CREATE INDEX IF NOT EXISTS idx_%[1]s_variant ON %[1]s(variant);
CREATE INDEX IF NOT EXISTS idx_%[1]s_pronunciation ON %[1]s(pronunciation);
CREATE INDEX IF NOT EXISTS idx_%[1]s_dictionary ON %[1]s(dictionary_key);
CREATE TABLE IF NOT EXISTS %[1]s_combos (
	entry_id       INTEGER NOT NULL,
	dictionary_key INTEGER NOT NULL,
	combo          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_combos_combo ON %[1]s_combos(combo);
CREATE INDEX IF NOT EXISTS idx_%[1]s_combos_entry ON %[1]s_combos(entry_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_combos_dictionary ON %[1]s_combos(dictionary_key);
`

const recordTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_key INTEGER NOT NULL,
	key            TEXT NOT NULL,
	media_type     TEXT NOT NULL DEFAULT '',
	data           BLOB
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_key ON %[1]s(dictionary_key, key);
`

var migrationsSQL = buildMigrations()

func buildMigrations() string {
	var b strings.Builder
	b.WriteString(dictionariesSQL)
	for _, t := range store.EntryTables {
		fmt.Fprintf(&b, entryTableSQL, t)
	}
	for _, t := range store.RecordTables {
		fmt.Fprintf(&b, recordTableSQL, t)
	}
	return b.String()
}

// InitDB runs migrations on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
