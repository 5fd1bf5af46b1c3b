package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps session documents in a single SQLite table. It offers
// the same semantics as FileStore for installations that prefer one database
// file over a directory of JSON documents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// sessions table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}

	// SQLite is single-writer by design. Keep a single shared connection so
	// concurrent callers are serialized by database/sql instead of fighting
	// for write locks across multiple underlying connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: set pragma: %w", err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id       TEXT PRIMARY KEY,
			created  TEXT NOT NULL,
			updated  TEXT NOT NULL,
			messages TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List enumerates all rows. Rows whose messages column fails to parse are
// reported per-record in Errors, keyed by the session id.
func (s *SQLiteStore) List(ctx context.Context) (ListResult, error) {
	result := ListResult{Sessions: []Summary{}, Errors: []ListError{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id, created, updated, messages FROM sessions`)
	if err != nil {
		return ListResult{}, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, created, updated, raw string
		if err := rows.Scan(&id, &created, &updated, &raw); err != nil {
			return ListResult{}, fmt.Errorf("session: list scan: %w", err)
		}

		var messages []Message
		if err := json.Unmarshal([]byte(raw), &messages); err != nil {
			result.Errors = append(result.Errors, ListError{File: id, Error: err.Error()})
			continue
		}

		result.Sessions = append(result.Sessions, Summary{
			ID:           id,
			Created:      created,
			Updated:      updated,
			MessageCount: len(messages),
		})
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("session: list rows: %w", err)
	}

	sortSummaries(result.Sessions)
	return result, nil
}

// Create inserts an empty session row and returns its id.
func (s *SQLiteStore) Create(ctx context.Context) (string, error) {
	id := NewID()
	ts := now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created, updated, messages) VALUES (?, ?, ?, ?)`,
		id, ts, ts, "[]",
	)
	if err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return id, nil
}

// Get returns the full document for id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT created, updated, messages FROM sessions WHERE id = ?`, id,
	).Scan(&doc.Created, &doc.Updated, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("session: get %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(raw), &doc.Messages); err != nil {
		return Document{}, fmt.Errorf("session: get %s: parse messages: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

// Put upserts the row, preserving the existing created timestamp and
// stamping updated.
func (s *SQLiteStore) Put(ctx context.Context, id string, doc Document) (Document, error) {
	var existingCreated string
	err := s.db.QueryRowContext(ctx,
		`SELECT created FROM sessions WHERE id = ?`, id,
	).Scan(&existingCreated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("session: put %s: %w", id, err)
	}

	if existingCreated != "" {
		doc.Created = existingCreated
	}
	if doc.Created == "" {
		doc.Created = now()
	}
	doc.Updated = now()
	doc.ID = id
	if doc.Messages == nil {
		doc.Messages = []Message{}
	}

	raw, err := json.Marshal(doc.Messages)
	if err != nil {
		return Document{}, fmt.Errorf("session: put %s: marshal messages: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created, updated, messages)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created  = excluded.created,
			updated  = excluded.updated,
			messages = excluded.messages
	`, id, doc.Created, doc.Updated, string(raw))
	if err != nil {
		return Document{}, fmt.Errorf("session: put %s: %w", id, err)
	}
	return doc, nil
}

// Delete removes the row, reporting whether it existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("session: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("session: delete %s: %w", id, err)
	}
	return n > 0, nil
}
