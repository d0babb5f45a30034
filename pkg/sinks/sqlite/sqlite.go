// Package sqlite provides a sink that writes rows into a SQLite database,
// one table per object.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/leapfake/pkg/sink"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	sink.Register("sqlite", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Dialect is the SQLite column mapping.
var Dialect = sink.Dialect{
	Name: "sqlite",
	Types: sink.ColumnTypes{
		Integer:   "INTEGER",
		Float:     "REAL",
		Boolean:   "BOOLEAN",
		Text:      "TEXT",
		Timestamp: "TIMESTAMP",
	},
	Placeholder: sink.QuestionPlaceholder,
}

// Params holds SQLite-specific configuration.
type Params struct {
	// Pragmas are applied after connecting (e.g. journal_mode: wal).
	Pragmas map[string]string `mapstructure:"pragmas"`
}

// Sink writes rows to SQLite.
type Sink struct {
	sink.BaseSQLSink
}

// New creates a sqlite sink.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{BaseSQLSink: sink.BaseSQLSink{Logger: logger, Dialect: Dialect}}
}

// Open connects to the database file. An empty path uses ":memory:".
func (s *Sink) Open(ctx context.Context, cfg sink.Config) error {
	var params Params
	if err := cfg.DecodeParams(&params); err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	s.DB = db
	s.Cfg = cfg

	names := make([]string, 0, len(params.Pragmas))
	for name := range params.Pragmas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Exec(ctx, fmt.Sprintf("PRAGMA %s = %s", name, params.Pragmas[name])); err != nil {
			_ = s.Close()
			return fmt.Errorf("failed to apply pragma %s: %w", name, err)
		}
	}

	s.Logger.Debug("opened sqlite sink", "path", path)
	return nil
}
