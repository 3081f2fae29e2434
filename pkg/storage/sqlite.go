package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lakegrant/lakegrant/pkg/store"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	document TEXT NOT NULL
)`

// SQLiteStore keeps the snapshot document in a single-row SQLite table.
// Saves replace the row inside a transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite file at the given
// path and ensures the snapshot table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() (store.State, bool, error) {
	var document string
	err := s.db.QueryRow("SELECT document FROM snapshot WHERE id = 1").Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return store.State{}, false, nil
	}
	if err != nil {
		return store.State{}, false, fmt.Errorf("reading snapshot row: %w", err)
	}

	var state store.State
	if err := json.Unmarshal([]byte(document), &state); err != nil {
		return store.State{}, false, fmt.Errorf("decoding snapshot document: %w", err)
	}
	return state, true, nil
}

func (s *SQLiteStore) Save(state store.State) error {
	document, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO snapshot (id, document) VALUES (1, ?)", string(document)); err != nil {
		tx.Rollback()
		return fmt.Errorf("writing snapshot row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
