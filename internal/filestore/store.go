// Package filestore persists last-successful-run timestamps to a JSON file so
// incremental tasks stay incremental across process restarts.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RoJaebl/portfolio/internal/runstore"
)

// fileFormat is the on-disk document.
type fileFormat struct {
	Version int                  `json:"version"`
	Tasks   map[string]time.Time `json:"tasks"`
}

const formatVersion = 1

// Store is a runstore.Store backed by a JSON file. Every successful record
// rewrites the whole file through a temp file and rename.
type Store struct {
	path string
	mu   sync.Mutex
	last map[string]time.Time
}

var _ runstore.Store = (*Store)(nil)

// Open loads path if it exists. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, last: make(map[string]time.Time)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("state file %s has version %d, want %d", path, doc.Version, formatVersion)
	}
	for k, v := range doc.Tasks {
		s.last[k] = v
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// LastSuccess implements runstore.Store.
func (s *Store) LastSuccess(ctx context.Context, task string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.last[task]
	return at, ok, nil
}

// RecordSuccess implements runstore.Store.
func (s *Store) RecordSuccess(ctx context.Context, task string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[task]; ok && prev.After(startedAt) {
		return nil
	}
	s.last[task] = startedAt
	return s.flush()
}

// flush writes the current map. Callers hold mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(fileFormat{Version: formatVersion, Tasks: s.last}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
