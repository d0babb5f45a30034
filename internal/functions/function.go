// Package functions holds the function registry used by recipes: built-ins,
// fake value providers and functions loaded from .star plugins.
//
// A Function declares its parameters so that calls from YAML
// (`random_number: {min: 1, max: 9}`) and from expressions
// (`${{ random_number(1, 9) }}`) bind arguments the same way.
package functions

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/leapstack-labs/leapfake/internal/registry"
)

// Param is a declared parameter.
type Param struct {
	Name     string
	Required bool
}

// Keyword is a named argument. Order is kept so weighted choices stay
// deterministic.
type Keyword struct {
	Name  string
	Value any
}

// Context is what a function can see of the running generation.
type Context struct {
	Faker *gofakeit.Faker
	Rows  *registry.Rows
	// Today anchors "today" and relative dates such as "-30d". The zero
	// value uses the current UTC date.
	Today time.Time
}

// Date returns the reference date, truncated to midnight UTC.
func (c *Context) Date() time.Time {
	t := time.Now().UTC()
	if c != nil && !c.Today.IsZero() {
		t = c.Today.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Func is the implementation behind a Function.
type Func func(c *Context, args *Args) (any, error)

// Function is a callable contract: name, parameters and arity.
type Function struct {
	Name        string
	Description string
	Params      []Param

	// Variadic accepts positional arguments beyond Params, in Args.Rest.
	Variadic bool
	// AnyKeywords accepts keyword arguments not in Params, in Args.Keywords.
	AnyKeywords bool
	// Namespace makes fn.X(...) equivalent to fn("X", ...).
	Namespace bool

	Call Func
}

// MinArgs returns the number of required parameters.
func (f *Function) MinArgs() int {
	n := 0
	for _, p := range f.Params {
		if p.Required {
			n++
		}
	}
	return n
}

// MaxArgs returns the maximum number of positional arguments, -1 if unbounded.
func (f *Function) MaxArgs() int {
	if f.Variadic {
		return -1
	}
	return len(f.Params)
}

// Signature renders the call shape, e.g. "random_number(min, max, step?)".
func (f *Function) Signature() string {
	parts := make([]string, 0, len(f.Params)+2)
	for _, p := range f.Params {
		if p.Required {
			parts = append(parts, p.Name)
		} else {
			parts = append(parts, p.Name+"?")
		}
	}
	if f.Variadic {
		parts = append(parts, "*args")
	}
	if f.AnyKeywords {
		parts = append(parts, "**kwargs")
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Invoke binds the arguments and calls the function.
func (f *Function) Invoke(c *Context, positional []any, kwargs []Keyword) (any, error) {
	args, err := f.Bind(positional, kwargs)
	if err != nil {
		return nil, err
	}
	return f.Call(c, args)
}

// Bind matches arguments to parameters. Positional arguments fill Params in
// order; keywords fill by name.
func (f *Function) Bind(positional []any, kwargs []Keyword) (*Args, error) {
	args := &Args{values: make(map[string]any, len(f.Params))}

	for i, v := range positional {
		if i < len(f.Params) {
			args.values[f.Params[i].Name] = v
			continue
		}
		if !f.Variadic {
			return nil, &ArgError{Msg: fmt.Sprintf("takes at most %d arguments, got %d", len(f.Params), len(positional))}
		}
		args.Rest = append(args.Rest, v)
	}

	for _, kw := range kwargs {
		if f.hasParam(kw.Name) {
			if _, dup := args.values[kw.Name]; dup {
				return nil, &ArgError{Msg: fmt.Sprintf("got multiple values for parameter `%s`", kw.Name)}
			}
			args.values[kw.Name] = kw.Value
			continue
		}
		if !f.AnyKeywords {
			return nil, &ArgError{Msg: fmt.Sprintf("unexpected keyword argument `%s`", kw.Name)}
		}
		args.Keywords = append(args.Keywords, kw)
	}

	for _, p := range f.Params {
		if _, ok := args.values[p.Name]; p.Required && !ok {
			return nil, &ArgError{Msg: fmt.Sprintf("missing required parameter `%s`", p.Name)}
		}
	}
	return args, nil
}

func (f *Function) hasParam(name string) bool {
	for _, p := range f.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Args are bound call arguments.
type Args struct {
	values map[string]any

	// Rest holds extra positional arguments of a variadic function.
	Rest []any
	// Keywords holds extra keyword arguments, in call order.
	Keywords []Keyword
}

// Get returns a bound parameter.
func (a *Args) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Value returns a bound parameter or nil.
func (a *Args) Value(name string) any {
	return a.values[name]
}

// String returns a parameter as a string.
func (a *Args) String(name string) (string, error) {
	return ToString(a.values[name])
}

// Int returns a parameter as an integer, or def when it is absent or nil.
func (a *Args) Int(name string, def int64) (int64, error) {
	v, ok := a.values[name]
	if !ok || v == nil {
		return def, nil
	}
	n, err := ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("parameter `%s`: %w", name, err)
	}
	return n, nil
}

// ArgError is a binding failure: missing, unexpected or duplicate arguments.
type ArgError struct {
	Msg string
}

func (e *ArgError) Error() string { return e.Msg }
