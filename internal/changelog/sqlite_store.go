package changelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS change_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	error_type   TEXT NOT NULL,
	updated_date TEXT NOT NULL,
	method       TEXT NOT NULL,
	unique_id    INTEGER NOT NULL,
	entry_key    TEXT NOT NULL UNIQUE,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_change_log_unique_id ON change_log(unique_id);
`

// SQLiteStore persists entries into a change_log table. The unique entry
// key keeps repeated saves idempotent.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// OpenSQLiteStore opens (and creates if needed) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{path: path, db: db}, nil
}

// Save inserts every entry not stored yet.
func (s *SQLiteStore) Save(ctx context.Context, log *Log) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO change_log
		(error_type, updated_date, method, unique_id, entry_key, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range log.Entries() {
		payload, err := json.Marshal(e.Values)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.ErrorType, e.UpdatedDate, string(e.Method), e.RowID, log.Key(e), string(payload)); err != nil {
			return fmt.Errorf("failed to insert entry for row %d: %w", e.RowID, err)
		}
	}

	return tx.Commit()
}

// Entries returns every stored entry in insertion order.
func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT error_type, updated_date, method, unique_id, payload
		FROM change_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			method  string
			payload string
		)
		if err := rows.Scan(&e.ErrorType, &e.UpdatedDate, &method, &e.RowID, &payload); err != nil {
			return nil, err
		}
		e.Method = Method(method)
		if err := json.Unmarshal([]byte(payload), &e.Values); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", e.RowID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
