package plugin

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/registry"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helpers = `
def double(x):
    """Twice x."""
    return x * 2

def greet(name, greeting="Hello"):
    return greeting + ", " + name

def total(first, *nums):
    s = first
    for n in nums:
        s += n
    return s

def label(text, *, upper=False):
    return text.upper() if upper else text

def tags(**kw):
    return ",".join(sorted(kw.keys()))

def owner(pet):
    return pet.name

def fail():
    return 1 // 0

LIMIT = 10
`

func loadHelpers(t *testing.T) (*functions.Registry, *functions.Context) {
	t.Helper()
	dir := writePlugins(t, map[string]string{"utils.star": helpers})
	reg := functions.Builtins()
	modules, err := NewLoader(dir, nil).LoadInto(reg)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	return reg, &functions.Context{Faker: gofakeit.New(1), Rows: registry.NewRows()}
}

func TestRegister_Signatures(t *testing.T) {
	reg, _ := loadHelpers(t)

	tests := []struct {
		name string
		want string
	}{
		{"utils.double", "utils.double(x)"},
		{"utils.greet", "utils.greet(name, greeting?)"},
		{"utils.total", "utils.total(first, *args)"},
		{"utils.label", "utils.label(text, upper?)"},
		{"utils.tags", "utils.tags(**kwargs)"},
	}
	for _, tt := range tests {
		fn, ok := reg.Lookup(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, fn.Signature())
	}

	fn, _ := reg.Lookup("utils.double")
	assert.Equal(t, "Twice x.", fn.Description)

	_, ok := reg.Lookup("utils.LIMIT")
	assert.False(t, ok, "only functions are registered")
	assert.Contains(t, reg.Namespaces(), "utils")
}

func TestRegister_Invoke(t *testing.T) {
	reg, fctx := loadHelpers(t)

	tests := []struct {
		name       string
		fn         string
		positional []any
		kwargs     []functions.Keyword
		want       any
	}{
		{name: "positional", fn: "utils.double", positional: []any{int64(21)}, want: int64(42)},
		{name: "keyword", fn: "utils.double", kwargs: []functions.Keyword{{Name: "x", Value: 1.5}}, want: 3.0},
		{name: "default", fn: "utils.greet", positional: []any{"Ada"}, want: "Hello, Ada"},
		{name: "override default", fn: "utils.greet", kwargs: []functions.Keyword{{Name: "name", Value: "Ada"}, {Name: "greeting", Value: "Hi"}}, want: "Hi, Ada"},
		{name: "varargs", fn: "utils.total", positional: []any{int64(1), int64(2), int64(3)}, want: int64(6)},
		{name: "keyword only", fn: "utils.label", positional: []any{"x"}, kwargs: []functions.Keyword{{Name: "upper", Value: true}}, want: "X"},
		{name: "kwargs", fn: "utils.tags", kwargs: []functions.Keyword{{Name: "b", Value: 1}, {Name: "a", Value: 2}}, want: "a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := reg.Lookup(tt.fn)
			require.True(t, ok)
			got, err := fn.Invoke(fctx, tt.positional, tt.kwargs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_References(t *testing.T) {
	reg, fctx := loadHelpers(t)

	pet := core.NewRow("Pet", fctx.Rows.NextID("Pet"), []string{"name"}, map[string]any{"name": "Rex"})
	fctx.Rows.Add(pet, "")

	fn, _ := reg.Lookup("utils.owner")
	got, err := fn.Invoke(fctx, []any{pet.Ref()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got)
}

func TestRegister_Errors(t *testing.T) {
	reg, fctx := loadHelpers(t)

	fn, _ := reg.Lookup("utils.fail")
	_, err := fn.Invoke(fctx, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")

	fn, _ = reg.Lookup("utils.double")
	_, err = fn.Invoke(fctx, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter `x`")
}

func TestRegister_NamespaceCollision(t *testing.T) {
	dir := writePlugins(t, map[string]string{"uuid.star": "def v4():\n    return 'x'\n"})

	_, err := NewLoader(dir, nil).LoadInto(functions.Builtins())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides with the built-in function uuid()")
}

func TestRegister_FakeNamespaceExtends(t *testing.T) {
	dir := writePlugins(t, map[string]string{"fake.star": "def Pet():\n    return 'Rex'\n"})
	reg := functions.Builtins()

	_, err := NewLoader(dir, nil).LoadInto(reg)
	require.NoError(t, err)

	fn, ok := reg.Lookup("fake.Pet")
	require.True(t, ok)
	got, err := fn.Invoke(&functions.Context{Faker: gofakeit.New(1)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got)
}

func TestRegister_DuplicateReportsDefLine(t *testing.T) {
	dir := writePlugins(t, map[string]string{"utils.star": helpers})
	reg := functions.Builtins()
	require.NoError(t, reg.Register(&functions.Function{
		Name: "utils.greet",
		Call: func(*functions.Context, *functions.Args) (any, error) { return nil, nil },
	}))

	_, err := NewLoader(dir, nil).LoadInto(reg)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 6, lerr.Line)
	assert.Contains(t, err.Error(), "plugins/utils.star:6:")
	assert.Contains(t, err.Error(), "already registered")
}
