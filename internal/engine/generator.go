package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/loader"
	"github.com/leapstack-labs/leapfake/internal/macro"
	"github.com/leapstack-labs/leapfake/internal/registry"
	starctx "github.com/leapstack-labs/leapfake/internal/starlark"
	"github.com/leapstack-labs/leapfake/pkg/core"
)

// generator walks a document and materializes rows.
type generator struct {
	file   string
	eval   *starctx.Evaluator
	macros *macro.Resolver
	rows   *registry.Rows
	sink   core.Sink
	vars   map[string]any
	logger *slog.Logger
}

func (g *generator) document(ctx context.Context, doc *loader.Document) error {
	for _, d := range doc.Decls {
		g.logger.Debug("processing declaration", "kind", d.Kind, "name", d.Name, "line", d.Line)

		switch d.Kind {
		case loader.DeclMacro:
			g.macros.Declare(d)
		case loader.DeclVar:
			if err := g.variable(ctx, d); err != nil {
				return err
			}
		case loader.DeclObject:
			if _, err := g.object(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// variable evaluates a var declaration once. Caller variables win.
func (g *generator) variable(ctx context.Context, d *loader.Declaration) error {
	if _, ok := g.vars[d.Name]; ok {
		g.logger.Debug("var overridden by caller", "name", d.Name)
		return nil
	}
	var v any
	if d.Value != nil {
		var err error
		if v, err = g.value(ctx, d.Value, nil); err != nil {
			return err
		}
	}
	g.eval.SetVar(d.Name, v)
	return nil
}

// object generates count rows of an object template and returns a
// reference to the last one (nil when count is zero).
func (g *generator) object(ctx context.Context, d *loader.Declaration) (any, error) {
	fields, friends, err := g.macros.Apply(d)
	if err != nil {
		return nil, err
	}

	count, err := g.count(ctx, d)
	if err != nil {
		return nil, err
	}

	var last any
	for i := range count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := g.row(ctx, d, fields, i)
		if err != nil {
			return nil, err
		}
		g.rows.Add(row, d.Nickname)
		if err := g.sink.WriteRow(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to write %s row %d: %w", row.Object(), row.ID(), err)
		}
		last = row.Ref()

		for _, friend := range friends {
			if _, err := g.object(ctx, friend); err != nil {
				return nil, err
			}
		}
	}
	return last, nil
}

// count evaluates the count of a template with no row scope.
func (g *generator) count(ctx context.Context, d *loader.Declaration) (int64, error) {
	if d.Count == nil {
		return 1, nil
	}
	v, err := g.value(ctx, d.Count, nil)
	if err != nil {
		return 0, err
	}

	line := d.CountLine
	if line == 0 {
		line = d.Count.Line()
	}
	if _, isRef := v.(core.Reference); isRef || v == nil {
		return 0, core.NewDataGenError(g.file, line, "count must be a non-negative integer, got %s", functions.TypeName(v))
	}
	if _, isBool := v.(bool); isBool {
		return 0, core.NewDataGenError(g.file, line, "count must be a non-negative integer, got bool")
	}
	n, err := functions.ToInt(v)
	if err != nil {
		return 0, core.WrapError(core.KindDataGen, g.file, line, err, "count must be a non-negative integer: %s", err.Error())
	}
	if n < 0 {
		return 0, core.NewDataGenError(g.file, line, "count must be a non-negative integer, got %d", n)
	}
	return n, nil
}

// row evaluates one row. id and child_index are in scope, and each field
// sees the fields before it.
func (g *generator) row(ctx context.Context, d *loader.Declaration, fields []*loader.Field, index int64) (*core.Row, error) {
	id := g.rows.NextID(d.Name)
	locals := map[string]any{
		"id":          id,
		"child_index": index,
	}

	names := make([]string, 0, len(fields))
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := g.value(ctx, f.Spec, locals)
		if err != nil {
			return nil, err
		}
		if !core.IsValue(v) {
			return nil, core.NewDataGenError(g.file, f.Line, "field `%s` of %s must be a single value, got %s", f.Name, d.Name, functions.TypeName(v))
		}
		names = append(names, f.Name)
		values[f.Name] = v
		locals[f.Name] = v
	}
	return core.NewRow(d.Name, id, names, values), nil
}

// value evaluates one field spec.
func (g *generator) value(ctx context.Context, spec loader.FieldSpec, locals map[string]any) (any, error) {
	switch s := spec.(type) {
	case *loader.Literal:
		return s.Value, nil
	case *loader.Expression:
		return g.eval.Eval(s.Template, locals)
	case *loader.FunctionCall:
		positional := make([]any, 0, len(s.Args))
		for _, arg := range s.Args {
			v, err := g.value(ctx, arg, locals)
			if err != nil {
				return nil, err
			}
			positional = append(positional, v)
		}
		kwargs := make([]functions.Keyword, 0, len(s.Kwargs))
		for _, kw := range s.Kwargs {
			v, err := g.value(ctx, kw.Value, locals)
			if err != nil {
				return nil, err
			}
			kwargs = append(kwargs, functions.Keyword{Name: kw.Name, Value: v})
		}
		return g.eval.Call(s.Name, s.Line(), positional, kwargs)
	case *loader.NestedObject:
		return g.object(ctx, s.Decl)
	default:
		return nil, core.NewDataGenError(g.file, spec.Line(), "unsupported field value %T", spec)
	}
}
