package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_PlainText(t *testing.T) {
	input := "What a wonderful life"
	lexer := NewLexer(input, "recipe.yml", 1)

	tokens, err := lexer.Tokenize()
	require.NoError(t, err, "unexpected error")

	require.Len(t, tokens, 2, "expected 2 tokens") // TEXT + EOF

	assert.Equal(t, TokenText, tokens[0].Type, "expected TEXT")
	assert.Equal(t, input, tokens[0].Value, "expected input value")
	assert.Equal(t, TokenEOF, tokens[1].Type, "expected EOF")
}

func TestLexer_Expressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "single expression",
			input: "${{ abcd() }}",
			expected: []Token{
				{Type: TokenExpr, Value: "abcd()"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "text around expression",
			input: "Hello ${{ name }}!",
			expected: []Token{
				{Type: TokenText, Value: "Hello "},
				{Type: TokenExpr, Value: "name"},
				{Type: TokenText, Value: "!"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "adjacent expressions",
			input: "${{a}}${{b}}",
			expected: []Token{
				{Type: TokenExpr, Value: "a"},
				{Type: TokenExpr, Value: "b"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "dict literal closes before delimiter",
			input: `${{ {"a": 1}["a"] }}`,
			expected: []Token{
				{Type: TokenExpr, Value: `{"a": 1}["a"]`},
				{Type: TokenEOF},
			},
		},
		{
			name:  "closing delimiter inside string",
			input: `${{ "}}" + x }}`,
			expected: []Token{
				{Type: TokenExpr, Value: `"}}" + x`},
				{Type: TokenEOF},
			},
		},
		{
			name:  "escaped opener",
			input: "cost $${{ not_evaluated }}",
			expected: []Token{
				{Type: TokenText, Value: "cost ${{ not_evaluated }}"},
				{Type: TokenEOF},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer(tt.input, "", 1).Tokenize()
			require.NoError(t, err)
			require.Len(t, tokens, len(tt.expected))
			for i, exp := range tt.expected {
				assert.Equal(t, exp.Type, tokens[i].Type, "token[%d] type", i)
				assert.Equal(t, exp.Value, tokens[i].Value, "token[%d] value", i)
			}
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	input := "first line\n  ${{\n    a + b }}"
	tokens, err := NewLexer(input, "recipe.yml", 10).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, Position{File: "recipe.yml", Line: 10, Column: 1}, tokens[0].Pos)
	// expression source starts after the whitespace following ${{
	assert.Equal(t, Position{File: "recipe.yml", Line: 12, Column: 5}, tokens[1].Pos)
	assert.Equal(t, "a + b", tokens[1].Value)
}

func TestLexer_UnclosedExpression(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "unbalanced paren", input: "${{expr)>", line: 2},
		{name: "single brace", input: "${{ x }", line: 5},
		{name: "open string", input: `${{ "abc }}`, line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, "", tt.line).Tokenize()
			require.Error(t, err)

			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tt.line, lexErr.Position().Line)
			assert.Contains(t, lexErr.Message(), "unclosed expression")
		})
	}
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "TEXT", TokenText.String())
	assert.Equal(t, "EXPR", TokenExpr.String())
	assert.Equal(t, "EOF", TokenEOF.String())
	assert.Equal(t, "UNKNOWN", TokenType(42).String())
}
