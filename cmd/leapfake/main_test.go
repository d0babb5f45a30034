package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapfake/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Join(wd, "testdata")
}

func TestExampleRecipes(t *testing.T) {
	td := testdataDir(t)
	recipes, err := filepath.Glob(filepath.Join(td, "*.yml"))
	require.NoError(t, err)
	require.NotEmpty(t, recipes)

	// keep run history and config lookups out of the source tree
	t.Chdir(t.TempDir())
	for _, recipe := range recipes {
		t.Run(filepath.Base(recipe), func(t *testing.T) {
			cmd := cli.NewRootCmd()
			out, errOut := new(bytes.Buffer), new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(errOut)
			cmd.SetArgs([]string{"generate", recipe, "-f", "debug", "--seed", "1",
				"--plugins-dir", filepath.Join(td, "plugins")})

			require.NoError(t, cmd.Execute(), errOut.String())
			assert.NotEmpty(t, strings.TrimSpace(out.String()))
			assert.Contains(t, errOut.String(), "Generated")
		})
	}
}
