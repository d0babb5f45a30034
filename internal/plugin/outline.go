package plugin

import (
	"strings"

	"go.starlark.net/syntax"
)

// Def is a top-level function as written in a plugin file.
type Def struct {
	Line int
	Doc  string
}

// Outline lists the public defs of a plugin file without executing it.
type Outline map[string]Def

// outline parses content and records each public def. Syntax errors are
// reported here with their position, before anything runs.
func outline(path string, content []byte) (Outline, error) {
	f, err := fileOptions.Parse(path, content, 0)
	if err != nil {
		return nil, err
	}
	out := make(Outline)
	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		out[def.Name.Name] = Def{Line: int(def.Name.NamePos.Line), Doc: docOf(def.Body)}
	}
	return out, nil
}

// docOf returns the docstring that opens body, if any.
func docOf(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	stmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	if lit, ok := stmt.X.(*syntax.Literal); ok && lit.Token == syntax.STRING {
		s, _ := lit.Value.(string)
		return strings.TrimSpace(s)
	}
	return ""
}
