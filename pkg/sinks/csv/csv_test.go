package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	ctx := context.Background()

	s, err := sink.Open(ctx, sink.Config{Type: "csv", Path: dir}, nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteRow(ctx, core.NewRow("Company", 1, []string{"name"}, map[string]any{"name": "Acme, Inc."})))
	require.NoError(t, s.WriteRow(ctx, core.NewRow("Person", 1, []string{"name", "employer"}, map[string]any{
		"name": "Alice", "employer": core.Reference{Object: "Company", ID: 1},
	})))
	require.NoError(t, s.WriteRow(ctx, core.NewRow("Person", 2, []string{"name"}, map[string]any{"name": "Bob"})))
	require.NoError(t, s.Close())

	assert.Equal(t, "id,name\n1,\"Acme, Inc.\"\n", readFile(t, filepath.Join(dir, "Company.csv")))
	assert.Equal(t, "id,name,employer\n1,Alice,1\n2,Bob,\n", readFile(t, filepath.Join(dir, "Person.csv")))
}

func TestSink_Delimiter(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := sink.Open(ctx, sink.Config{Type: "csv", Path: dir, Params: map[string]any{"delimiter": ";"}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteRow(ctx, core.NewRow("A", 1, []string{"x"}, map[string]any{"x": int64(5)})))
	require.NoError(t, s.Close())

	assert.Equal(t, "id;x\n1;5\n", readFile(t, filepath.Join(dir, "A.csv")))

	_, err = sink.Open(ctx, sink.Config{Type: "csv", Path: dir, Params: map[string]any{"delimiter": ";;"}}, nil)
	assert.Error(t, err)
}

func TestSink_NewFieldIsAnError(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	require.NoError(t, s.Open(ctx, sink.Config{Path: t.TempDir()}))
	defer func() { _ = s.Close() }()

	require.NoError(t, s.WriteRow(ctx, core.NewRow("A", 1, []string{"x"}, map[string]any{"x": 1})))
	err := s.WriteRow(ctx, core.NewRow("A", 2, []string{"x", "y"}, map[string]any{"x": 1, "y": 2}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "y" not in the header of A.csv`)
}
