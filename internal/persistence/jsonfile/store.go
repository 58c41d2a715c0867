// Package jsonfile keeps the booking queue in a human-readable JSON file that
// is rewritten wholesale on every save.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/class-booker/internal/persistence"
)

// Store implements persistence.QueueRepository over a single file.
type Store struct {
	path   string
	logger *slog.Logger
}

var _ persistence.QueueRepository = (*Store)(nil)

// NewStore returns a store for the file at path. The file is created on first save.
func NewStore(path string) *Store {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger returns a store that reports unreadable content to logger.
func NewStoreWithLogger(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger.With("component", "queue_file", "path", path)}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LoadQueue reads the queue. A missing file is an empty queue, and so is a file
// that cannot be decoded; the latter is logged.
func (s *Store) LoadQueue(ctx context.Context) ([]persistence.QueueEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var entries []persistence.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.WarnContext(ctx, "queue file unreadable, treating as empty",
			"error", fmt.Errorf("%w: %v", persistence.ErrCorrupt, err))
		return nil, nil
	}
	return entries, nil
}

// SaveQueue writes entries to a temporary file next to the target and renames it
// into place.
func (s *Store) SaveQueue(ctx context.Context, entries []persistence.QueueEntry) error {
	if entries == nil {
		entries = []persistence.QueueEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp queue file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	s.logger.DebugContext(ctx, "queue saved", "entries", len(entries))
	return nil
}
