package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/plugin"
	"github.com/spf13/cobra"
)

// FunctionsOptions holds options for the functions command.
type FunctionsOptions struct {
	Providers bool
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand() *cobra.Command {
	opts := &FunctionsOptions{}

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the functions available to recipes",
		Long: `List built-in functions and the functions exported by .star files in the
plugins directory. With --providers, list the fake data providers instead.`,
		Example: `  leapfake functions
  leapfake functions --plugins-dir star
  leapfake functions --providers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			if opts.Providers {
				return renderProviders(c.Out)
			}

			reg := functions.Builtins().Clone()
			if _, err := plugin.NewLoader(c.Cfg.PluginsDir, c.Logger).LoadInto(reg); err != nil {
				return fmt.Errorf("failed to load plugins: %w", err)
			}
			renderFunctions(c.Out, reg.Functions())
			return nil
		},
	}

	cmd.Flags().String("plugins-dir", "", "Directory of .star plugin files")
	cmd.Flags().BoolVar(&opts.Providers, "providers", false, "List fake data providers")
	return cmd
}

func renderFunctions(w io.Writer, fns []*functions.Function) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Function", "Description"})
	for _, fn := range fns {
		t.AppendRow(table.Row{fn.Signature(), fn.Description})
	}
	t.Render()
}

func renderProviders(w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Provider", "Category", "Example"})
	for _, name := range functions.Providers() {
		info, err := functions.LookupProvider(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, info.Category, info.Example})
	}
	t.Render()
	return nil
}
