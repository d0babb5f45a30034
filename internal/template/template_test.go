package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Single(t *testing.T) {
	tmpl, err := Parse("${{ 1 + 2 }}", "", 3)
	require.NoError(t, err)

	e, ok := tmpl.Single()
	require.True(t, ok)
	assert.Equal(t, "1 + 2", e.Expr)
	assert.Equal(t, 3, e.Pos().Line)
	assert.True(t, tmpl.HasExpr())
}

func TestParse_Mixed(t *testing.T) {
	tmpl, err := Parse("Dear ${{ name }}, you owe ${{ amount }}", "", 1)
	require.NoError(t, err)

	_, ok := tmpl.Single()
	assert.False(t, ok)
	require.Len(t, tmpl.Nodes, 4)
	assert.Len(t, tmpl.Exprs(), 2)

	text, ok := tmpl.Nodes[0].(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "Dear ", text.Text)
}

func TestParse_NoExpression(t *testing.T) {
	tmpl, err := Parse("plain", "", 1)
	require.NoError(t, err)
	assert.False(t, tmpl.HasExpr())
	assert.False(t, IsTemplate("plain"))
	assert.True(t, IsTemplate("a ${{ b }}"))
}

func TestTemplate_Check(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		wantErr bool
		errLine int
	}{
		{name: "valid call", input: "${{ abcd() }}", line: 3},
		{name: "valid arithmetic", input: "${{ A.id * 2 + 1 }}", line: 1},
		{name: "dangling operator", input: "${{ 1 + }}", line: 4, wantErr: true, errLine: 4},
		{name: "empty", input: "${{ }}", line: 2, wantErr: true, errLine: 2},
		{
			name:    "error on second expression line",
			input:   "${{ (1 +\n 2 + ) }}",
			line:    7,
			wantErr: true,
			errLine: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.input, "recipe.yml", tt.line)
			require.NoError(t, err)

			err = tmpl.Check()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.errLine, perr.Position().Line)
		})
	}
}
