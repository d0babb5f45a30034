package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapfake/internal/cli/output"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded generation runs",
		Long: `List runs recorded with --record (or record_runs: true), newest first.
A run's seed reproduces its rows with generate --seed.`,
		Example: `  leapfake runs --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			if _, err := os.Stat(c.Cfg.StatePath); os.IsNotExist(err) {
				_, _ = fmt.Fprintln(c.Out, "No runs recorded")
				return nil
			}

			store, err := c.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(c.Out, "No runs recorded")
				return nil
			}
			renderRuns(c.Out, output.NewRenderer(c.Out), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func renderRuns(w io.Writer, msg *output.Renderer, runs []*core.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Recipe", "Seed", "Status", "Rows", "Started", "Duration", "Error"})
	for _, r := range runs {
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			r.ID,
			r.Recipe,
			strconv.FormatUint(r.Seed, 10),
			msg.Status(r.Status),
			r.Rows,
			r.StartedAt.Local().Format(time.DateTime),
			duration,
			r.Error,
		})
	}
	t.Render()
}
