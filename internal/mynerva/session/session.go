// Package session persists multi-turn chat sessions as individual JSON
// documents. Two backends implement the same Store contract: one file per
// session on disk (the default) and a single SQLite table.
//
// Writes are full-document replaces with last-writer-wins semantics; the one
// guarded field is the creation timestamp, which survives every update.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when the session id has no backing record.
var ErrNotFound = errors.New("session: not found")

// Message is a single chat turn. Actions carries an optional structured
// payload of assistant-proposed actions, preserved verbatim.
type Message struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Actions json.RawMessage `json:"actions,omitempty"`
}

// Document is a full session record.
type Document struct {
	ID       string    `json:"id"`
	Created  string    `json:"created"`
	Updated  string    `json:"updated"`
	Messages []Message `json:"messages"`
}

// Summary is the listing view of a session.
type Summary struct {
	ID           string `json:"id"`
	Created      string `json:"created"`
	Updated      string `json:"updated"`
	MessageCount int    `json:"messageCount"`
}

// ListError reports one record that could not be read while listing. A
// corrupt record never aborts listing of the rest.
type ListError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ListResult is the outcome of a List call.
type ListResult struct {
	Sessions []Summary   `json:"sessions"`
	Errors   []ListError `json:"errors"`
}

// Store is the session persistence contract.
type Store interface {
	// List enumerates all sessions, most recently active first. Records
	// that fail to parse are reported in Errors instead of aborting.
	List(ctx context.Context) (ListResult, error)

	// Create writes a fresh empty session and returns its id.
	Create(ctx context.Context) (string, error)

	// Get returns the full document, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Put upserts the document under id. The creation timestamp of an
	// existing record is carried forward regardless of what the caller
	// supplies; the update timestamp is always rewritten to now. The
	// stored document is returned.
	Put(ctx context.Context, id string, doc Document) (Document, error)

	// Delete removes the record, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// NewID generates a session id: a sortable UTC timestamp component plus a
// short random suffix. Ids sort lexicographically by creation time, and the
// suffix makes collisions negligible for a single local user.
func NewID() string {
	return time.Now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8]
}

// now returns the timestamp format used for created/updated fields.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// sortSummaries orders summaries descending by updated, falling back to
// created, then the empty string, so most-recently-active sessions come
// first.
func sortSummaries(sessions []Summary) {
	key := func(s Summary) string {
		if s.Updated != "" {
			return s.Updated
		}
		return s.Created
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return key(sessions[i]) > key(sessions[j])
	})
}
