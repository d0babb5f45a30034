package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/leapstack-labs/leapfake/internal/loader"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <recipe.yml>...",
		Short: "Check recipes without generating rows",
		Long: `Parse and validate recipes: YAML structure, declaration keys and
expression syntax. Names and functions are resolved only when generating.`,
		Example: `  leapfake validate people.yml companies.yml`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			results := validateAll(args)
			var failed int
			for i, path := range args {
				if err := results[i].err; err != nil {
					failed++
					c.Msg.Printf("%s %v\n", c.Msg.Error("FAIL"), err)
					continue
				}
				_, _ = fmt.Fprintf(c.Out, "%s: OK (%d declarations)\n", path, results[i].decls)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d recipes failed validation", failed, len(args))
			}
			return nil
		},
	}
}

type validation struct {
	decls int
	err   error
}

// validateAll checks recipes concurrently. Results follow the order of paths.
func validateAll(paths []string) []validation {
	results := make([]validation, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			n, err := validateRecipe(path)
			results[i] = validation{decls: n, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func validateRecipe(path string) (int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: recipe path is provided by the user
	if err != nil {
		return 0, fmt.Errorf("failed to open recipe: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := loader.Load(f, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	return len(doc.Decls), nil
}
