package plugin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapfake/internal/functions"
	starctx "github.com/leapstack-labs/leapfake/internal/starlark"
	"go.starlark.net/starlark"
)

// maxSteps bounds both module execution and each plugin call.
const maxSteps = starctx.DefaultMaxSteps

// Register adds every exported function of the modules to reg as
// "namespace.name". A namespace may not reuse the name of a plain function.
func Register(reg *functions.Registry, modules []*Module) error {
	for _, m := range modules {
		if fn, ok := reg.Lookup(m.Namespace); ok && !fn.Namespace {
			return &LoadError{File: m.Path, Message: fmt.Sprintf("namespace %q collides with the built-in function %s", m.Namespace, fn.Signature())}
		}

		names := make([]string, 0, len(m.Exports))
		for name := range m.Exports {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			sf, ok := m.Exports[name].(*starlark.Function)
			if !ok {
				continue
			}
			fn := wrap(m.Namespace, sf)
			def := m.Defs[name]
			fn.Description = def.Doc
			if fn.Description == "" {
				fn.Description = sf.Doc()
			}
			if err := reg.Register(fn); err != nil {
				return &LoadError{File: m.Path, Line: def.Line, Message: err.Error()}
			}
		}
	}
	return nil
}

// LoadInto loads dir and registers its functions. A missing directory is not
// an error.
func (l *Loader) LoadInto(reg *functions.Registry) ([]*Module, error) {
	modules, err := l.Load()
	if err != nil {
		return nil, err
	}
	if err := Register(reg, modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// wrap describes a Starlark function as a registry function.
func wrap(namespace string, sf *starlark.Function) *functions.Function {
	named := sf.NumParams()
	if sf.HasVarargs() {
		named--
	}
	if sf.HasKwargs() {
		named--
	}
	positional := named - sf.NumKwonlyParams()

	params := make([]functions.Param, named)
	for i := range named {
		name, _ := sf.Param(i)
		params[i] = functions.Param{Name: name, Required: sf.ParamDefault(i) == nil}
	}

	return &functions.Function{
		Name:        namespace + "." + sf.Name(),
		Params:      params,
		Variadic:    sf.HasVarargs(),
		AnyKeywords: sf.HasKwargs(),
		Call: func(c *functions.Context, args *functions.Args) (any, error) {
			return call(c, sf, params, positional, args)
		},
	}
}

// call rebuilds Starlark arguments from bound ones. Positional parameters
// are passed by position until the first absent one, the rest by keyword.
func call(c *functions.Context, sf *starlark.Function, params []functions.Param, positional int, args *functions.Args) (any, error) {
	conv := func(v any) (starlark.Value, error) {
		return starctx.ToStarlark(v, c.Rows)
	}

	var (
		tuple  starlark.Tuple
		kwargs []starlark.Tuple
	)
	gap := false
	for i, p := range params {
		v, ok := args.Get(p.Name)
		if !ok {
			if i < positional {
				gap = true
			}
			continue
		}
		sv, err := conv(v)
		if err != nil {
			return nil, fmt.Errorf("parameter `%s`: %w", p.Name, err)
		}
		if i < positional && !gap {
			tuple = append(tuple, sv)
			continue
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(p.Name), sv})
	}
	if len(args.Rest) > 0 && gap {
		return nil, errors.New("extra positional arguments need every parameter before them")
	}
	for _, v := range args.Rest {
		sv, err := conv(v)
		if err != nil {
			return nil, err
		}
		tuple = append(tuple, sv)
	}
	for _, kw := range args.Keywords {
		sv, err := conv(kw.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter `%s`: %w", kw.Name, err)
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(kw.Name), sv})
	}

	thread := &starlark.Thread{
		Name:  "plugin:" + sf.Name(),
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(maxSteps)

	result, err := starlark.Call(thread, sf, tuple, kwargs)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, errors.New(evalErr.Msg)
		}
		return nil, err
	}
	return starctx.FromStarlark(result)
}
