package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerateCommand(t *testing.T) {
	cmd := NewGenerateCommand()

	assert.Equal(t, "generate <recipe.yml>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.Equal(t, []string{"gen"}, cmd.Aliases)

	flags := []string{"output-format", "output", "seed", "var", "plugins-dir", "record", "watch", "debounce"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.NotNil(t, cmd.Flags().ShorthandLookup("f"))
	assert.NotNil(t, cmd.Flags().ShorthandLookup("o"))
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate <recipe.yml>...", cmd.Use)
	assert.Error(t, cmd.Args(cmd, nil), "at least one recipe is required")
}

func TestNewFunctionsCommand(t *testing.T) {
	cmd := NewFunctionsCommand()

	assert.Equal(t, "functions", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("providers"))
	assert.NotNil(t, cmd.Flags().Lookup("plugins-dir"))
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	assert.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leapfake v1.2.3")
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format string
		output string
		want   string
	}{
		{format: "csv", output: "people.db", want: "csv"},
		{format: "auto", output: "people.db", want: "sqlite"},
		{format: "auto", output: "people.SQLITE", want: "sqlite"},
		{format: "auto", output: "warehouse.duckdb", want: "duckdb"},
		{format: "auto", output: "postgres://localhost/fake", want: "postgres"},
		{format: "auto", output: "postgresql://localhost/fake", want: "postgres"},
		{format: "auto", output: "rows.jsonl", want: "jsonl"},
		{format: "auto", output: "rows.log", want: "debug"},
		{format: "auto", output: "out", want: "csv"},
		{format: "auto", output: "", want: "jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.format+" "+tt.output, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFormat(tt.format, tt.output, new(bytes.Buffer)))
		})
	}
}

func TestValidateRecipe(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	bad := filepath.Join(dir, "bad.yml")
	assert.NoError(t, os.WriteFile(good, []byte("- object: A\n- object: B\n  count: 2\n"), 0o600))
	assert.NoError(t, os.WriteFile(bad, []byte("- object: A\n  fields:\n    x: ${{ 1 +\n"), 0o600))

	n, err := validateRecipe(good)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = validateRecipe(bad)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "bad.yml:3")
	}

	_, err = validateRecipe(filepath.Join(dir, "missing.yml"))
	assert.ErrorContains(t, err, "failed to open recipe")
}

func TestValidateAll_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 1; i <= 6; i++ {
		p := filepath.Join(dir, fmt.Sprintf("r%d.yml", i))
		src := strings.Repeat("- object: A\n", i)
		require.NoError(t, os.WriteFile(p, []byte(src), 0o600))
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.yml"))

	results := validateAll(paths)
	require.Len(t, results, 7)
	for i := range 6 {
		assert.NoError(t, results[i].err)
		assert.Equal(t, i+1, results[i].decls)
	}
	assert.Error(t, results[6].err)
}
