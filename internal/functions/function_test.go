package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(_ *Context, args *Args) (any, error) {
	return args, nil
}

func TestFunction_Bind(t *testing.T) {
	fn := &Function{
		Name:   "f",
		Params: []Param{{Name: "a", Required: true}, {Name: "b"}},
		Call:   echo,
	}

	tests := []struct {
		name       string
		positional []any
		kwargs     []Keyword
		wantA      any
		wantB      any
		wantErr    string
	}{
		{name: "positional", positional: []any{int64(1), int64(2)}, wantA: int64(1), wantB: int64(2)},
		{name: "keyword", kwargs: []Keyword{{Name: "a", Value: "x"}}, wantA: "x"},
		{name: "mixed", positional: []any{1}, kwargs: []Keyword{{Name: "b", Value: 2}}, wantA: 1, wantB: 2},
		{name: "missing required", kwargs: []Keyword{{Name: "b", Value: 2}}, wantErr: "missing required parameter `a`"},
		{name: "too many", positional: []any{1, 2, 3}, wantErr: "takes at most 2 arguments, got 3"},
		{name: "unexpected keyword", positional: []any{1}, kwargs: []Keyword{{Name: "c", Value: 1}}, wantErr: "unexpected keyword argument `c`"},
		{name: "duplicate", positional: []any{1}, kwargs: []Keyword{{Name: "a", Value: 1}}, wantErr: "multiple values for parameter `a`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := fn.Bind(tt.positional, tt.kwargs)
			if tt.wantErr != "" {
				require.Error(t, err)
				var argErr *ArgError
				assert.ErrorAs(t, err, &argErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantA, args.Value("a"))
			assert.Equal(t, tt.wantB, args.Value("b"))
		})
	}
}

func TestFunction_VariadicAndKeywords(t *testing.T) {
	fn := &Function{Name: "g", Variadic: true, AnyKeywords: true, Call: echo}

	args, err := fn.Bind([]any{1, 2}, []Keyword{{Name: "z", Value: 1}, {Name: "a", Value: 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, args.Rest)
	assert.Equal(t, []Keyword{{Name: "z", Value: 1}, {Name: "a", Value: 2}}, args.Keywords, "keyword order is preserved")
}

func TestFunction_Arity(t *testing.T) {
	fn := &Function{
		Name:   "random_number",
		Params: []Param{{Name: "min", Required: true}, {Name: "max", Required: true}, {Name: "step"}},
	}
	assert.Equal(t, 2, fn.MinArgs())
	assert.Equal(t, 3, fn.MaxArgs())
	assert.Equal(t, "random_number(min, max, step?)", fn.Signature())

	fn.Variadic = true
	assert.Equal(t, -1, fn.MaxArgs())
}

func TestArgs_Int(t *testing.T) {
	fn := &Function{Name: "f", Params: []Param{{Name: "n"}}, Call: echo}

	args, err := fn.Bind(nil, nil)
	require.NoError(t, err)
	n, err := args.Int("n", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	args, err = fn.Bind([]any{"12"}, nil)
	require.NoError(t, err)
	n, err = args.Int("n", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	args, err = fn.Bind([]any{"twelve"}, nil)
	require.NoError(t, err)
	_, err = args.Int("n", 7)
	assert.ErrorContains(t, err, "parameter `n`")
}
