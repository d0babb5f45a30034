// Package commands implements the leapfake CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapfake/internal/cli/config"
	"github.com/leapstack-labs/leapfake/internal/cli/output"
	"github.com/leapstack-labs/leapfake/internal/state"
	"github.com/spf13/cobra"

	// Register the built-in sinks.
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/csv"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/debug"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/duckdb"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/jsonl"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/postgres"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/sqlite"
	_ "github.com/leapstack-labs/leapfake/pkg/sinks/table"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	ErrOut io.Writer

	// Msg styles human-facing messages on ErrOut.
	Msg *output.Renderer
}

// NewCommandContext collects the config and logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
		Msg:    output.NewRenderer(cmd.ErrOrStderr()),
	}
}

// OpenStore opens and migrates the run history database.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state database: %w", err)
	}
	return store, nil
}

// ResolveFormat picks the sink for the "auto" output format: from the
// output's scheme or extension when there is an output, otherwise a table
// on a terminal and JSON lines when piped.
func ResolveFormat(format, dest string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if dest != "" {
		if strings.HasPrefix(dest, "postgres://") || strings.HasPrefix(dest, "postgresql://") {
			return "postgres"
		}
		switch strings.ToLower(filepath.Ext(dest)) {
		case ".db", ".sqlite", ".sqlite3":
			return "sqlite"
		case ".duckdb", ".ddb":
			return "duckdb"
		case ".txt", ".log":
			return "debug"
		case "":
			return "csv"
		default:
			return "jsonl"
		}
	}
	if output.IsTerminal(w) {
		return "table"
	}
	return "jsonl"
}
