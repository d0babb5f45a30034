package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRow_Immutable(t *testing.T) {
	values := map[string]any{"name": "Alice", "age": int64(30)}
	row := NewRow("Person", 1, []string{"name", "age"}, values)

	values["name"] = "Bob"
	fields := row.Fields()
	fields[0] = "changed"
	m := row.Map()
	m["age"] = int64(99)

	got, ok := row.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Alice", got)
	assert.Equal(t, []string{"name", "age"}, row.Fields())
	assert.Equal(t, []any{"Alice", int64(30)}, row.Values())
}

func TestRow_String(t *testing.T) {
	row := NewRow("Pet", 2, []string{"owner", "born", "tag"}, map[string]any{
		"owner": Reference{Object: "Person", ID: 1},
		"born":  time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		"tag":   nil,
	})

	assert.Equal(t, "Pet(id=2, owner=Person(1), born=2020-01-02, tag=)", row.String())
	assert.Equal(t, Reference{Object: "Pet", ID: 2}, row.Ref())
}

func TestIsValue(t *testing.T) {
	for _, v := range []any{nil, "x", true, int64(1), 1.5, time.Now(), Reference{Object: "A", ID: 1}} {
		assert.True(t, IsValue(v), "%T", v)
	}
	for _, v := range []any{[]any{int64(1)}, map[string]any{"k": 1}, 3, float32(1)} {
		assert.False(t, IsValue(v), "%T", v)
	}
}
