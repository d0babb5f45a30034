package template

import (
	"errors"

	"go.starlark.net/syntax"
)

// exprOptions are the Starlark dialect options for recipe expressions.
var exprOptions = &syntax.FileOptions{}

// Parse compiles input into a Template. line is the recipe line on which
// input starts.
func Parse(input, file string, line int) (*Template, error) {
	tokens, err := NewLexer(input, file, line).Tokenize()
	if err != nil {
		return nil, err
	}

	t := &Template{Source: input}
	for _, tok := range tokens {
		switch tok.Type {
		case TokenText:
			t.Nodes = append(t.Nodes, &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Value})
		case TokenExpr:
			t.Nodes = append(t.Nodes, &ExprNode{nodeBase: nodeBase{pos: tok.Pos}, Expr: tok.Value})
		}
	}
	return t, nil
}

// Check parses every expression with the Starlark expression grammar and
// reports the first malformed one. Names are not resolved here.
func (t *Template) Check() error {
	for _, e := range t.Exprs() {
		if err := e.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Check parses the expression and maps a syntax error onto recipe lines.
func (e *ExprNode) Check() error {
	if e.Expr == "" {
		return NewParseErrorf(e.pos, e.Expr, "empty expression")
	}
	if _, err := exprOptions.ParseExpr(e.pos.File, e.Expr, 0); err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			return NewParseErrorf(e.MapPosition(serr.Pos), e.Expr, "%s", serr.Msg)
		}
		return NewParseErrorf(e.pos, e.Expr, "%s", err.Error())
	}
	return nil
}

// MapPosition converts a position inside the expression source to a recipe
// position.
func (e *ExprNode) MapPosition(p syntax.Position) Position {
	if p.Line <= 0 {
		return e.pos
	}
	pos := Position{File: e.pos.File, Line: e.pos.Line + int(p.Line) - 1, Column: int(p.Col)}
	if p.Line == 1 {
		pos.Column = e.pos.Column + int(p.Col) - 1
	}
	return pos
}
