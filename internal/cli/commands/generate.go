package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfake/internal/engine"
	"github.com/leapstack-labs/leapfake/pkg/sink"
	"github.com/spf13/cobra"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Watch    bool
	Debounce time.Duration
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <recipe.yml>",
		Short: "Generate rows from a recipe",
		Long: `Generate rows from a recipe and write them to a sink.

The output format picks the sink (debug, csv, jsonl, table, sqlite, duckdb,
postgres). With "auto", the format is inferred from --output, or a table is
printed on a terminal and JSON lines otherwise.`,
		Example: `  # Print rows as a table
  leapfake generate people.yml

  # Write a SQLite database with a fixed seed
  leapfake generate people.yml -o people.db --seed 42

  # Override a variable and keep regenerating on change
  leapfake generate people.yml --var region=emea --watch`,
		Aliases: []string{"gen"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringP("output-format", "f", "", "Sink to write to (auto|debug|csv|jsonl|table|sqlite|duckdb|postgres)")
	cmd.Flags().StringP("output", "o", "", "Output file, directory or DSN")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
	cmd.Flags().String("today", "", "Reference date for relative dates, YYYY-MM-DD (default: run date)")
	cmd.Flags().StringToString("var", nil, "Recipe variable as name=value (repeatable)")
	cmd.Flags().String("plugins-dir", "", "Directory of .star plugin files")
	cmd.Flags().Bool("record", false, "Record the run in the state database")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Regenerate when the recipe or plugins change")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "Delay before regenerating in watch mode")

	_ = cmd.RegisterFlagCompletionFunc("output-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return append([]string{"auto"}, sink.List()...), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGenerate(cmd *cobra.Command, path string, opts *GenerateOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()

	if !opts.Watch {
		_, err := c.Generate(ctx, path)
		return err
	}

	if _, err := c.Generate(ctx, path); err != nil {
		c.Msg.Errorf(err)
	}
	c.Msg.Printf("%s\n", c.Msg.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", path)))

	w := &Watcher{
		Paths:    []string{path, c.Cfg.PluginsDir},
		Debounce: opts.Debounce,
		Logger:   c.Logger,
	}
	return w.Run(ctx, func() {
		if _, err := c.Generate(ctx, path); err != nil {
			c.Msg.Errorf(err)
		}
	})
}

// Generate runs the recipe at path once into a freshly opened sink and
// prints a summary to ErrOut.
func (c *CommandContext) Generate(ctx context.Context, path string) (*engine.Result, error) {
	f, err := os.Open(path) //nolint:gosec // G304: recipe path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe: %w", err)
	}
	defer func() { _ = f.Close() }()

	format := ResolveFormat(c.Cfg.OutputFormat, c.Cfg.Output, c.Out)
	out, err := sink.Open(ctx, sink.Config{
		Type:        format,
		Path:        c.Cfg.Output,
		TablePrefix: c.Cfg.Sink.TablePrefix,
		Params:      c.Cfg.Sink.Params,
		Writer:      c.Out,
	}, c.Logger)
	if err != nil {
		return nil, err
	}

	today, err := c.Cfg.TodayDate()
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	opts := []engine.Option{
		engine.WithSink(out),
		engine.WithSeed(c.Cfg.Seed),
		engine.WithToday(today),
		engine.WithFilename(filepath.Base(path)),
		engine.WithPlugins(c.Cfg.PluginsDir),
		engine.WithLogger(c.Logger),
	}
	if c.Cfg.RecordRuns {
		store, err := c.OpenStore()
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, engine.WithStore(store))
	}

	result, err := engine.Generate(ctx, f, c.Cfg.VarValues(), opts...)
	if closeErr := out.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close %s sink: %w", format, closeErr))
	}
	if err != nil {
		return nil, err
	}

	c.Msg.Printf("%s %d rows (%s) in %s, seed %s\n", c.Msg.Success("Generated"),
		result.Rows, formatCounts(result.Counts), result.Duration.Round(time.Millisecond), c.Msg.Bold(strconv.FormatUint(result.Seed, 10)))
	if result.RunID != "" {
		c.Msg.Printf("%s\n", c.Msg.Muted("Run "+result.RunID+" recorded"))
	}
	return result, nil
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s: %d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}
