package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"nilor/internal/codec"

	"go.uber.org/zap"
)

// Importer replaces a graph from an encoded document
type Importer interface {
	Import(ctx context.Context, format string, r io.Reader) error
}

// Reload imports the file at path into editor, picking the codec from the
// file extension. The graph is untouched when the file cannot be read or
// parsed.
func Reload(ctx context.Context, editor Importer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := editor.Import(ctx, codec.FormatFromPath(path), f); err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	return nil
}

// NewReloader returns an onChange callback that reloads path into editor
// and logs the outcome. Reloads never overlap.
func NewReloader(ctx context.Context, editor Importer, path string, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()

		if err := Reload(ctx, editor, path); err != nil {
			logger.Warn("reload failed, keeping current graph", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("reloaded graph from file", zap.String("path", path))
	}
}
