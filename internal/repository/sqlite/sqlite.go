package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nilor/internal/repository"

	_ "modernc.org/sqlite"
)

// Store implements repository.Store using SQLite
type Store struct {
	db  *sql.DB
	key string
}

// New creates a new SQLite store saving under repository.DefaultKey
func New(dbPath string) (*Store, error) {
	return NewWithKey(dbPath, repository.DefaultKey)
}

// NewWithKey creates a new SQLite store saving under key
func NewWithKey(dbPath, key string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, key: key}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		value JSON,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load returns the document saved under the store's key
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	row, err := s.get(ctx)
	if err != nil {
		return nil, err
	}

	data := nullToBytes(row.Value)
	if data == nil {
		return nil, repository.ErrNoDocument
	}
	return data, nil
}

// UpdatedAt reports when the document was last saved, or nil if never
func (s *Store) UpdatedAt(ctx context.Context) (*time.Time, error) {
	row, err := s.get(ctx)
	if errors.Is(err, repository.ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return nullToTimePtr(row.UpdatedAt), nil
}

func (s *Store) get(ctx context.Context) (*documentRow, error) {
	var row documentRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE key = ?`, s.key,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query document: %v", repository.ErrStorageUnavailable, err)
	}
	return &row, nil
}

// Save upserts the document under the store's key
func (s *Store) Save(ctx context.Context, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", repository.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, s.key, bytesToNull(data))
	if err != nil {
		return fmt.Errorf("%w: failed to save document: %v", repository.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", repository.ErrStorageUnavailable, err)
	}
	return nil
}

// Clear deletes the document saved under the store's key
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("%w: failed to delete document: %v", repository.ErrStorageUnavailable, err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
