// Package duckdb provides a sink that writes rows into a DuckDB database,
// one table per object.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapfake/pkg/sink"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	sink.Register("duckdb", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

// Dialect is the DuckDB column mapping.
var Dialect = sink.Dialect{
	Name: "duckdb",
	Types: sink.ColumnTypes{
		Integer:   "BIGINT",
		Float:     "DOUBLE",
		Boolean:   "BOOLEAN",
		Text:      "VARCHAR",
		Timestamp: "TIMESTAMP",
	},
	Placeholder: sink.QuestionPlaceholder,
}

// Params holds DuckDB-specific configuration.
// Parsed from sink.Config.Params using mapstructure.
type Params struct {
	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// Sink writes rows to DuckDB.
type Sink struct {
	sink.BaseSQLSink
}

// New creates a duckdb sink.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{BaseSQLSink: sink.BaseSQLSink{Logger: logger, Dialect: Dialect}}
}

// Open establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (s *Sink) Open(ctx context.Context, cfg sink.Config) error {
	var params Params
	if err := cfg.DecodeParams(&params); err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.DB = db
	s.Cfg = cfg

	if err := s.applySettings(ctx, params.Settings); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func (s *Sink) applySettings(ctx context.Context, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		//nolint:gosec // G201: settings come from the project config
		query := fmt.Sprintf("SET %s = '%s'", k, settings[k])
		if err := s.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
		s.Logger.Debug("applied duckdb setting", "name", k)
	}
	return nil
}
