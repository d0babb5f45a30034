package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/leapstack-labs/leapfake/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	row := core.NewRow("Person", 3, []string{"name", "age", "score", "born", "pet", "nick"}, map[string]any{
		"name":  `Al "the" Pal`,
		"age":   int64(30),
		"score": 1.5,
		"born":  time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		"pet":   core.Reference{Object: "Animal", ID: 2},
		"nick":  nil,
	})

	got, err := Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"_object":"Person","id":3,"name":"Al \"the\" Pal","age":30,"score":1.5,"born":"1990-05-17","pet":2,"nick":null}`, string(got))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
}

func TestSink_Writer(t *testing.T) {
	var buf bytes.Buffer
	s, err := sink.Open(context.Background(), sink.Config{Type: "jsonl", Writer: &buf}, nil)
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.WriteRow(context.Background(), core.NewRow("A", i, []string{"n"}, map[string]any{"n": i * 10})))
	}
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"_object":"A","id":2,"n":20}`, lines[1])
}

func TestSink_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rows.jsonl")

	s, err := sink.Open(context.Background(), sink.Config{Type: "jsonl", Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteRow(context.Background(), core.NewRow("A", 1, nil, nil)))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"_object\":\"A\",\"id\":1}\n", string(data))
}
