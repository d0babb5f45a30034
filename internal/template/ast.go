// Package template compiles recipe strings with embedded ${{ expr }}
// expressions. Text outside the delimiters is literal.
package template

import "strings"

// Position is a location in the recipe file. Line and Column are 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is a TextNode or an ExprNode.
type Node interface {
	Pos() Position
	node()
}

type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode is literal output.
type TextNode struct {
	nodeBase
	Text string
}

// Expr holds the Starlark source without delimiters; Pos is where that
// source starts, so Starlark positions can be mapped back to recipe lines.
type ExprNode struct {
	nodeBase
	Expr string
}

// Template is a compiled recipe string.
type Template struct {
	Source string
	Nodes  []Node
}

// Single returns the expression when the template is exactly one
// expression with no surrounding text.
func (t *Template) Single() (*ExprNode, bool) {
	if len(t.Nodes) != 1 {
		return nil, false
	}
	e, ok := t.Nodes[0].(*ExprNode)
	return e, ok
}

// HasExpr reports whether the template contains any expression.
func (t *Template) HasExpr() bool {
	for _, n := range t.Nodes {
		if _, ok := n.(*ExprNode); ok {
			return true
		}
	}
	return false
}

// Exprs returns the expression nodes in order.
func (t *Template) Exprs() []*ExprNode {
	var out []*ExprNode
	for _, n := range t.Nodes {
		if e, ok := n.(*ExprNode); ok {
			out = append(out, e)
		}
	}
	return out
}

// IsTemplate reports whether s contains an expression opener.
func IsTemplate(s string) bool {
	return strings.Contains(s, exprOpen)
}
