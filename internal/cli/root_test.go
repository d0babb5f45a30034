package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipe = `- var: greeting
  value: Hello
- object: Person
  count: 2
  fields:
    name: Alice
    age: ${{ 20 + id }}
    hello: ${{ greeting }}
`

// setupProject creates a project directory with a recipe and makes it the
// working directory.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.yml"), []byte(recipe), 0o600))
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestHelpCommand(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, want := range []string{"generate", "validate", "functions", "runs", "version", "completion"} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommand(t *testing.T) {
	setupProject(t)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapfake v"+Version)
}

func TestGenerateCommand(t *testing.T) {
	setupProject(t)

	out, errOut, err := execute(t, "generate", "people.yml", "-f", "jsonl", "--seed", "7", "--var", "greeting=Hi")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"_object":"Person","id":1,"name":"Alice","age":21,"hello":"Hi"}`, lines[0])
	assert.Equal(t, `{"_object":"Person","id":2,"name":"Alice","age":22,"hello":"Hi"}`, lines[1])
	assert.Contains(t, errOut, "Generated 2 rows (Person: 2)")
	assert.Contains(t, errOut, "seed 7")
}

func TestGenerateCommand_ConfigFile(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapfake.yaml"), []byte("output_format: csv\noutput: out\n"), 0o600))

	_, _, err := execute(t, "generate", "people.yml")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out", "Person.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,name,age,hello\n1,Alice,21,Hello\n2,Alice,22,Hello\n", string(data))
}

func TestGenerateCommand_Errors(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("- object: A\n  fields:\n    x: ${{ nope }}\n"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing recipe", args: []string{"generate", "nope.yml", "-f", "jsonl"}, want: "failed to open recipe"},
		{name: "unknown sink", args: []string{"generate", "people.yml", "-f", "xml"}, want: `unknown sink type "xml"`},
		{name: "recipe error", args: []string{"generate", "broken.yml", "-f", "jsonl"}, want: "broken.yml:3"},
		{name: "no recipe", args: []string{"generate"}, want: "accepts 1 arg"},
		{name: "bad today", args: []string{"generate", "people.yml", "-f", "jsonl", "--today", "soon"}, want: `invalid today "soon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateCommand_Today(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "due.yml"), []byte("- object: Invoice\n  fields:\n    due: ${{ date(\"+1w\") }}\n"), 0o600))

	out, _, err := execute(t, "generate", "due.yml", "-f", "jsonl", "--seed", "1", "--today", "2024-03-15")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-22")
}

func TestRunsCommand(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")

	_, errOut, err := execute(t, "generate", "people.yml", "-f", "jsonl", "--seed", "1234", "--record")
	require.NoError(t, err)
	assert.Contains(t, errOut, "recorded")

	out, _, err = execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "people.yml")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "completed")
}

func TestValidateCommand(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, "validate", "people.yml")
	require.NoError(t, err)
	assert.Contains(t, out, "people.yml: OK (2 declarations)")

	_, errOut, err := execute(t, "validate", "people.yml", "missing.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 recipes failed validation")
	assert.Contains(t, errOut, "missing.yml")
}

func TestFunctionsCommand(t *testing.T) {
	dir := setupProject(t)
	plugins := filepath.Join(dir, "plugins")
	require.NoError(t, os.MkdirAll(plugins, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(plugins, "utils.star"), []byte(`def shout(s):
    """Upper-case s with a bang."""
    return s.upper() + "!"
`), 0o600))

	out, _, err := execute(t, "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "random_number")
	assert.Contains(t, out, "utils.shout(s)")
	assert.Contains(t, out, "Upper-case s with a bang.")

	out, _, err = execute(t, "functions", "--providers")
	require.NoError(t, err)
	assert.Contains(t, out, "firstname")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapfake")
}
