package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const memoryPath = ":memory:"

// SQLiteStore is the core.Store used by the CLI.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore returns an unopened store. A nil logger discards logs.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open connects to the database at path, creating parent directories.
// ":memory:" keeps everything on a single in-memory connection.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path == memoryPath {
		s.logger.Debug("using in-memory state store")
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		// WAL plus a busy timeout lets `runs` read while a generation writes.
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open state database %s: %w", path, err)
	}
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to state database %s: %w", path, err)
	}

	s.db, s.path = db, path
	s.logger.Debug("opened state store", slog.String("path", path))
	return nil
}

// Close releases the connection. Closing an unopened store is a no-op.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// InitSchema migrates the database to the latest schema.
func (s *SQLiteStore) InitSchema() error {
	return s.Migrate(context.Background())
}

func newRunID() string {
	return uuid.NewString()
}
