package repository

import (
	"context"
	"errors"
)

// DefaultKey is the storage key the editor autosaves under
const DefaultKey = "nilor-graph"

var (
	// ErrNoDocument is returned by Load when nothing has been saved
	ErrNoDocument = errors.New("no saved document")

	// ErrStorageUnavailable wraps every backend read or write failure
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store persists one serialized graph document
type Store interface {
	// Load returns the saved document or ErrNoDocument
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the saved document
	Save(ctx context.Context, data []byte) error

	// Clear removes the saved document. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases resources
	Close() error
}
