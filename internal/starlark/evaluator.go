// Package starlark evaluates recipe expressions with go.starlark.net.
//
// Names resolve, in order, against the row scope (id, child_index and the
// fields computed so far), previously generated rows by nickname or object
// name, recipe variables and finally the function registry. Expressions run
// on a fresh thread with a step budget and no print output.
package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/template"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultMaxSteps bounds the work a single expression may do.
const DefaultMaxSteps = 1_000_000

// exprOptions must match the options templates were checked with.
var exprOptions = &syntax.FileOptions{}

var undefinedName = regexp.MustCompile(`^undefined: (\w+)`)

// Evaluator evaluates templates and function calls for one generation run.
type Evaluator struct {
	file     string
	funcs    *functions.Registry
	fctx     *functions.Context
	vars     map[string]any
	globals  starlark.StringDict
	maxSteps uint64
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) {
		e.maxSteps = n
	}
}

// WithLogger sets the logger (nil uses a discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator creates an evaluator over a function registry. fctx carries
// the run's faker and row registry.
func NewEvaluator(file string, funcs *functions.Registry, fctx *functions.Context, opts ...Option) *Evaluator {
	if file == "" {
		file = core.DefaultFilename
	}
	e := &Evaluator{
		file:     file,
		funcs:    funcs,
		fctx:     fctx,
		vars:     make(map[string]any),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	e.buildGlobals()
	return e
}

// buildGlobals exposes registry functions: plain names as callables and
// dotted names grouped under their namespace.
func (e *Evaluator) buildGlobals() {
	e.globals = make(starlark.StringDict)
	for _, fn := range e.funcs.Functions() {
		if !strings.Contains(fn.Name, ".") {
			e.globals[fn.Name] = &FuncValue{fn: fn, eval: e}
		}
	}
	for ns, members := range e.funcs.Namespaces() {
		if existing, taken := e.globals[ns]; taken {
			if fv, ok := existing.(*FuncValue); ok && fv.fn.Namespace {
				continue
			}
			e.logger.Warn("plugin namespace shadowed by a built-in function", "namespace", ns)
			continue
		}
		dict := make(starlark.StringDict, len(members))
		for name, fn := range members {
			dict[name] = &FuncValue{fn: fn, eval: e}
		}
		e.globals[ns] = &namespace{name: ns, members: dict}
	}
}

// SetVar defines a recipe variable.
func (e *Evaluator) SetVar(name string, value any) {
	e.vars[name] = value
}

// Var returns a recipe variable.
func (e *Evaluator) Var(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Eval evaluates a template. A template that is a single expression yields
// the expression's value; anything else renders to a string.
func (e *Evaluator) Eval(t *template.Template, locals map[string]any) (any, error) {
	if single, ok := t.Single(); ok {
		return e.EvalExpr(single, locals)
	}

	var sb strings.Builder
	for _, node := range t.Nodes {
		switch n := node.(type) {
		case *template.TextNode:
			sb.WriteString(n.Text)
		case *template.ExprNode:
			v, err := e.EvalExpr(n, locals)
			if err != nil {
				return nil, err
			}
			sb.WriteString(core.FormatValue(v))
		}
	}
	return sb.String(), nil
}

// EvalExpr evaluates one expression node.
func (e *Evaluator) EvalExpr(node *template.ExprNode, locals map[string]any) (any, error) {
	line := node.Pos().Line

	expr, err := exprOptions.ParseExpr(e.file, node.Expr, 0)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			return nil, core.WrapError(core.KindSyntax, e.file, node.MapPosition(serr.Pos).Line, err, "%s", serr.Msg)
		}
		return nil, core.WrapError(core.KindSyntax, e.file, line, err, "%s", err.Error())
	}

	env, err := e.env(expr, locals)
	if err != nil {
		return nil, core.WrapError(core.KindDataGen, e.file, line, err, "Cannot evaluate expression `%s`: %s", node.Expr, err.Error())
	}

	thread := e.newThread()
	result, err := starlark.EvalExprOptions(exprOptions, thread, expr, env)
	if err != nil {
		return nil, e.classify(node, err)
	}

	v, err := FromStarlark(result)
	if err != nil {
		return nil, core.WrapError(core.KindDataGen, e.file, line, err, "Cannot evaluate expression `%s`: %s", node.Expr, err.Error())
	}
	return v, nil
}

// Call invokes a function in YAML call form at line. Unknown functions are
// name errors; failures inside the function are data generation errors.
func (e *Evaluator) Call(name string, line int, positional []any, kwargs []functions.Keyword) (any, error) {
	fn, err := e.funcs.Get(name)
	if err != nil {
		// fake.FirstName: works like fake: FirstName
		if ns, member, ok := strings.Cut(name, "."); ok {
			if parent, found := e.funcs.Lookup(ns); found && parent.Namespace {
				positional = append([]any{member}, positional...)
				fn, err = parent, nil
			}
		}
	}
	if err != nil {
		var unknown *functions.UnknownFunctionError
		if errors.As(err, &unknown) {
			return nil, functions.UnknownError(e.file, line, unknown)
		}
		return nil, err
	}

	out, err := fn.Invoke(e.fctx, positional, kwargs)
	if err != nil {
		return nil, functions.CallError(e.file, line, name, err)
	}
	return out, nil
}

// env binds only the identifiers the expression mentions.
func (e *Evaluator) env(expr syntax.Expr, locals map[string]any) (starlark.StringDict, error) {
	env := make(starlark.StringDict)
	var convErr error

	syntax.Walk(expr, func(n syntax.Node) bool {
		id, ok := n.(*syntax.Ident)
		if !ok || convErr != nil {
			return convErr == nil
		}
		if _, done := env[id.Name]; done {
			return true
		}
		v, found, err := e.lookup(id.Name, locals)
		if err != nil {
			convErr = fmt.Errorf("name `%s`: %w", id.Name, err)
			return false
		}
		if found {
			env[id.Name] = v
		}
		return true
	})
	if convErr != nil {
		return nil, convErr
	}
	env.Freeze()
	return env, nil
}

func (e *Evaluator) lookup(name string, locals map[string]any) (starlark.Value, bool, error) {
	if v, ok := locals[name]; ok {
		sv, err := ToStarlark(v, e.fctx.Rows)
		return sv, err == nil, err
	}
	if e.fctx.Rows != nil {
		if row, ok := e.fctx.Rows.Latest(name); ok {
			return NewRowValue(row, e.fctx.Rows), true, nil
		}
	}
	if v, ok := e.vars[name]; ok {
		sv, err := ToStarlark(v, e.fctx.Rows)
		return sv, err == nil, err
	}
	if v, ok := e.globals[name]; ok {
		return v, true, nil
	}
	return nil, false, nil
}

// classify maps a Starlark failure onto a located recipe error.
func (e *Evaluator) classify(node *template.ExprNode, err error) error {
	line := node.Pos().Line

	var call *callFailure
	if errors.As(err, &call) {
		return functions.CallError(e.file, line, call.name, call.err)
	}

	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		first := resolveErrs[0]
		at := node.MapPosition(first.Pos).Line
		if m := undefinedName.FindStringSubmatch(first.Msg); m != nil {
			return core.WrapError(core.KindName, e.file, at, err, "undefined name `%s`", m[1])
		}
		return core.WrapError(core.KindSyntax, e.file, at, err, "%s", first.Msg)
	}

	msg := err.Error()
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		msg = evalErr.Msg
	}
	return core.WrapError(core.KindDataGen, e.file, line, err, "Cannot evaluate expression `%s`: %s", node.Expr, msg)
}

func (e *Evaluator) newThread() *starlark.Thread {
	thread := &starlark.Thread{
		Name: e.file,
		Print: func(_ *starlark.Thread, _ string) {
			// expressions have no output channel
		},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)
	return thread
}
