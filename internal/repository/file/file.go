// Package file stores the autosave document as a single file on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"nilor/internal/repository"
)

// Store implements repository.Store on one file
type Store struct {
	path string
}

// New creates a file store at path. The parent directory is created if needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the file the document is saved to
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved document
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", repository.ErrStorageUnavailable, s.path, err)
	}
	if len(data) == 0 {
		return nil, repository.ErrNoDocument
	}
	return data, nil
}

// Save writes the document to a temp file in the same directory and renames
// it over the old one, so readers never see a partial write
func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", repository.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write temp file: %v", repository.ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync temp file: %v", repository.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %v", repository.ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", repository.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// Clear removes the document file
func (s *Store) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove %s: %v", repository.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
