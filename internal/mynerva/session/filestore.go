package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// FileStore keeps one <id>.json document per session under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on first write, so constructing a store never touches the disk.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) pathFor(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// List enumerates every session file in the directory. Files that fail to
// read or parse are reported per-record in Errors.
func (s *FileStore) List(ctx context.Context) (ListResult, error) {
	result := ListResult{Sessions: []Summary{}, Errors: []ListError{}}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return ListResult{}, fmt.Errorf("session: list %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		doc, err := s.readFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ListError{
				File:  entry.Name(),
				Error: err.Error(),
			})
			continue
		}

		result.Sessions = append(result.Sessions, Summary{
			ID:           strings.TrimSuffix(entry.Name(), fileExt),
			Created:      doc.Created,
			Updated:      doc.Updated,
			MessageCount: len(doc.Messages),
		})
	}

	sortSummaries(result.Sessions)
	return result, nil
}

// Create writes an empty session document and returns its id.
func (s *FileStore) Create(ctx context.Context) (string, error) {
	id := NewID()
	ts := now()
	doc := Document{ID: id, Created: ts, Updated: ts, Messages: []Message{}}

	if err := s.write(id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the session document for id, or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, id string) (Document, error) {
	doc, err := s.readFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("session: get %s: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

// Put upserts the document under id, preserving the existing creation
// timestamp and stamping the update timestamp.
func (s *FileStore) Put(ctx context.Context, id string, doc Document) (Document, error) {
	if existing, err := s.readFile(s.pathFor(id)); err == nil && existing.Created != "" {
		doc.Created = existing.Created
	}
	if doc.Created == "" {
		doc.Created = now()
	}
	doc.Updated = now()
	doc.ID = id
	if doc.Messages == nil {
		doc.Messages = []Message{}
	}

	if err := s.write(id, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Delete removes the session file. A missing file is not an error; the
// boolean reports whether anything was removed.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	err := os.Remove(s.pathFor(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: delete %s: %w", id, err)
	}
	return true, nil
}

func (s *FileStore) readFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *FileStore) write(id string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("session: marshal %s: %w", id, err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("session: create directory: %w", err)
	}
	if err := os.WriteFile(s.pathFor(id), data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", id, err)
	}
	return nil
}
