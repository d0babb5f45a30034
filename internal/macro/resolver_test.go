package macro

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapfake/internal/loader"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, src string) *loader.Document {
	t.Helper()
	doc, err := loader.Load(strings.NewReader(src), "recipe.yml")
	require.NoError(t, err)
	return doc
}

func declareAll(r *Resolver, doc *loader.Document) {
	for _, d := range doc.Decls {
		if d.Kind == loader.DeclMacro {
			r.Declare(d)
		}
	}
}

func fieldNames(fields []*loader.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func literal(t *testing.T, f *loader.Field) any {
	t.Helper()
	lit, ok := f.Spec.(*loader.Literal)
	require.True(t, ok, "field %s is %T", f.Name, f.Spec)
	return lit.Value
}

const chain = `
- macro: base
  fields:
    kind: base
    created: 2020
- macro: named
  include: base
  fields:
    name: Alice
    kind: named
- object: Person
  include: named
  fields:
    age: 30
    name: Bob
`

func TestResolver_Chain(t *testing.T) {
	doc := load(t, chain)
	r := NewResolver("recipe.yml")
	declareAll(r, doc)

	named, err := r.Resolve("named", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "created", "name"}, fieldNames(named.Fields))
	assert.Equal(t, "named", literal(t, named.Fields[0]), "closest layer wins")

	fields, _, err := r.Apply(doc.Decls[2])
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "created", "name", "age"}, fieldNames(fields))
	assert.Equal(t, "Bob", literal(t, fields[2]), "template overrides macro")
	assert.Equal(t, 15, fields[2].Line)
}

func TestResolver_Memoized(t *testing.T) {
	doc := load(t, chain)
	r := NewResolver("recipe.yml")
	declareAll(r, doc)

	a, err := r.Resolve("named", 1)
	require.NoError(t, err)
	b, err := r.Resolve("named", 1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestResolver_Friends(t *testing.T) {
	doc := load(t, `
- macro: with_pet
  friends:
    - object: Pet
- object: Person
  include: with_pet
  friends:
    - object: Car
`)
	r := NewResolver("recipe.yml")
	declareAll(r, doc)

	_, friends, err := r.Apply(doc.Decls[1])
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "Pet", friends[0].Name)
	assert.Equal(t, "Car", friends[1].Name)
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		resolve  string
		sentinel error
		contains string
		wantLine int
	}{
		{
			name: "undeclared",
			src: `
- macro: a
  include: nowhere
`,
			resolve:  "a",
			sentinel: core.ErrName,
			contains: "Cannot find macro named `nowhere`",
			wantLine: 3,
		},
		{
			name: "self cycle",
			src: `
- macro: a
  include: a
`,
			resolve:  "a",
			sentinel: core.ErrDataGen,
			contains: "macro inheritance cycle: a -> a",
			wantLine: 2,
		},
		{
			name: "two step cycle",
			src: `
- macro: a
  include: b
- macro: b
  include: a
`,
			resolve:  "a",
			sentinel: core.ErrDataGen,
			contains: "macro inheritance cycle: a -> b -> a",
			wantLine: 4,
		},
		{
			name: "cycle below entry point",
			src: `
- macro: top
  include: a
- macro: a
  include: b
- macro: b
  include: a
`,
			resolve:  "top",
			sentinel: core.ErrDataGen,
			contains: "macro inheritance cycle: a -> b -> a",
			wantLine: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver("recipe.yml")
			declareAll(r, load(t, tt.src))

			_, err := r.Resolve(tt.resolve, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), tt.contains)

			rerr, ok := core.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantLine, rerr.Line())
		})
	}
}

func TestResolver_ForwardReference(t *testing.T) {
	doc := load(t, `
- object: Person
  include: later
- macro: later
  fields:
    a: 1
`)
	r := NewResolver("recipe.yml")

	// generation has not reached the macro yet
	_, _, err := r.Apply(doc.Decls[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrName)
	assert.True(t, strings.HasSuffix(err.Error(), ":3"), err.Error())

	r.Declare(doc.Decls[1])
	assert.True(t, r.Declared("later"))
	fields, _, err := r.Apply(doc.Decls[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fieldNames(fields))
}

func TestMerge(t *testing.T) {
	f := func(name string, line int) *loader.Field { return &loader.Field{Name: name, Line: line} }

	got := Merge([]*loader.Field{f("a", 1), f("b", 2)}, []*loader.Field{f("c", 3), f("a", 4)})
	assert.Equal(t, []string{"a", "b", "c"}, fieldNames(got))
	assert.Equal(t, 4, got[0].Line)

	assert.Empty(t, Merge(nil, nil))
}
