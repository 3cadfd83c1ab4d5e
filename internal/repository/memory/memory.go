// Package memory provides a process-local repository.Store.
package memory

import (
	"bytes"
	"context"
	"sync"

	"nilor/internal/repository"
)

// Store keeps the saved document in memory
type Store struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// New creates an empty memory store
func New() *Store {
	return &Store{}
}

// Load returns a copy of the saved document
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, repository.ErrNoDocument
	}
	return bytes.Clone(s.data), nil
}

// Save replaces the saved document with a copy of data
func (s *Store) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = bytes.Clone(data)
	if s.data == nil {
		s.data = []byte{}
	}
	s.saves++
	return nil
}

// Clear drops the saved document
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	return nil
}

// Saves reports how many times Save succeeded
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
