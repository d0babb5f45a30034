package starlark

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/registry"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// RowValue exposes a generated row to expressions as read-only attributes:
// A.id, A.name. Reference fields resolve to rows as well, so A.pet.species
// works.
type RowValue struct {
	ref  core.Reference
	row  *core.Row
	rows *registry.Rows
}

var (
	_ starlark.HasAttrs   = (*RowValue)(nil)
	_ starlark.Comparable = (*RowValue)(nil)
)

// NewRowValue wraps a row.
func NewRowValue(row *core.Row, rows *registry.Rows) *RowValue {
	return &RowValue{ref: row.Ref(), row: row, rows: rows}
}

// Ref returns the reference to the wrapped row.
func (r *RowValue) Ref() core.Reference { return r.ref }

func (r *RowValue) String() string        { return r.ref.String() }
func (r *RowValue) Type() string          { return "row" }
func (r *RowValue) Freeze()               {}
func (r *RowValue) Truth() starlark.Bool  { return starlark.True }
func (r *RowValue) Hash() (uint32, error) { return starlark.String(r.ref.String()).Hash() }

// Attr returns id or a field of the row.
func (r *RowValue) Attr(name string) (starlark.Value, error) {
	if name == "id" {
		return starlark.MakeInt64(r.ref.ID), nil
	}
	row := r.resolve()
	if row == nil {
		return nil, nil
	}
	v, ok := row.Get(name)
	if !ok {
		return nil, nil
	}
	return ToStarlark(v, r.rows)
}

// AttrNames lists id and the row's fields.
func (r *RowValue) AttrNames() []string {
	names := []string{"id"}
	if row := r.resolve(); row != nil {
		names = append(names, row.Fields()...)
	}
	sort.Strings(names)
	return names
}

// CompareSameType compares rows by reference.
func (r *RowValue) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	other := y.(*RowValue)
	switch op {
	case syntax.EQL:
		return r.ref == other.ref, nil
	case syntax.NEQ:
		return r.ref != other.ref, nil
	default:
		return false, fmt.Errorf("%s %s %s not implemented", r.Type(), op, y.Type())
	}
}

func (r *RowValue) resolve() *core.Row {
	if r.row == nil && r.rows != nil {
		r.row, _ = r.rows.Lookup(r.ref)
	}
	return r.row
}

// DateValue is a calendar date or timestamp.
type DateValue time.Time

var (
	_ starlark.HasAttrs       = DateValue{}
	_ starlark.TotallyOrdered = DateValue{}
)

func (d DateValue) String() string        { return core.FormatValue(time.Time(d)) }
func (d DateValue) Type() string          { return "date" }
func (d DateValue) Freeze()               {}
func (d DateValue) Truth() starlark.Bool  { return starlark.True }
func (d DateValue) Hash() (uint32, error) { return starlark.String(d.String()).Hash() }

// Cmp orders dates chronologically.
func (d DateValue) Cmp(y starlark.Value, _ int) (int, error) {
	return time.Time(d).Compare(time.Time(y.(DateValue))), nil
}

// Attr exposes the date parts.
func (d DateValue) Attr(name string) (starlark.Value, error) {
	t := time.Time(d)
	switch name {
	case "year":
		return starlark.MakeInt(t.Year()), nil
	case "month":
		return starlark.MakeInt(int(t.Month())), nil
	case "day":
		return starlark.MakeInt(t.Day()), nil
	case "weekday":
		return starlark.MakeInt(int(t.Weekday())), nil
	}
	return nil, nil
}

// AttrNames lists the date parts.
func (d DateValue) AttrNames() []string {
	return []string{"day", "month", "weekday", "year"}
}

// FuncValue is a registry function callable from expressions. Namespace
// functions such as fake also answer attribute calls: fake.FirstName().
type FuncValue struct {
	fn   *functions.Function
	eval *Evaluator
}

var (
	_ starlark.Callable = (*FuncValue)(nil)
	_ starlark.HasAttrs = (*FuncValue)(nil)
)

func (f *FuncValue) Name() string          { return f.fn.Name }
func (f *FuncValue) String() string        { return "<function " + f.fn.Name + ">" }
func (f *FuncValue) Type() string          { return "function" }
func (f *FuncValue) Freeze()               {}
func (f *FuncValue) Truth() starlark.Bool  { return starlark.True }
func (f *FuncValue) Hash() (uint32, error) { return starlark.String(f.fn.Name).Hash() }

// CallInternal converts arguments to Go values and invokes the function.
func (f *FuncValue) CallInternal(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return f.call(f.fn.Name, nil, args, kwargs)
}

// Attr returns a member call of a namespace function. Registered members
// such as a plugin's fake.Pet take precedence.
func (f *FuncValue) Attr(name string) (starlark.Value, error) {
	if !f.fn.Namespace {
		return nil, nil
	}
	if member, ok := f.eval.funcs.Lookup(f.fn.Name + "." + name); ok {
		return &FuncValue{fn: member, eval: f.eval}, nil
	}
	return starlark.NewBuiltin(f.fn.Name+"."+name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return f.call(b.Name(), []any{name}, args, kwargs)
	}), nil
}

// AttrNames is empty: namespace members are open-ended.
func (f *FuncValue) AttrNames() []string { return nil }

func (f *FuncValue) call(display string, prefix []any, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	positional := make([]any, 0, len(prefix)+len(args))
	positional = append(positional, prefix...)
	for _, a := range args {
		v, err := FromStarlark(a)
		if err != nil {
			return nil, &callFailure{name: display, err: err}
		}
		positional = append(positional, v)
	}

	kws := make([]functions.Keyword, 0, len(kwargs))
	for _, kv := range kwargs {
		v, err := FromStarlark(kv[1])
		if err != nil {
			return nil, &callFailure{name: display, err: err}
		}
		kws = append(kws, functions.Keyword{Name: string(kv[0].(starlark.String)), Value: v})
	}

	out, err := f.fn.Invoke(f.eval.fctx, positional, kws)
	if err != nil {
		return nil, &callFailure{name: display, err: err}
	}
	return ToStarlark(out, f.eval.fctx.Rows)
}

// callFailure marks an error raised by a registry function so it can be
// reported as "Cannot evaluate function".
type callFailure struct {
	name string
	err  error
}

func (e *callFailure) Error() string { return e.err.Error() }
func (e *callFailure) Unwrap() error { return e.err }

// namespace groups plugin functions: utils.double(2).
type namespace struct {
	name    string
	members starlark.StringDict
}

var _ starlark.HasAttrs = (*namespace)(nil)

func (n *namespace) String() string        { return "<namespace " + n.name + ">" }
func (n *namespace) Type() string          { return "namespace" }
func (n *namespace) Freeze()               {}
func (n *namespace) Truth() starlark.Bool  { return starlark.True }
func (n *namespace) Hash() (uint32, error) { return starlark.String(n.name).Hash() }

func (n *namespace) Attr(name string) (starlark.Value, error) {
	return n.members[name], nil
}

func (n *namespace) AttrNames() []string { return n.members.Keys() }

// ToStarlark converts a row value to a Starlark value. References become
// row values resolved against rows; rows may be nil when none are needed.
func ToStarlark(v any, rows *registry.Rows) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil
	case time.Time:
		return DateValue(val), nil
	case core.Reference:
		return &RowValue{ref: val, rows: rows}, nil
	case *core.Row:
		return NewRowValue(val, rows), nil
	case []any:
		elems := make([]starlark.Value, 0, len(val))
		for i, item := range val {
			sv, err := ToStarlark(item, rows)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			elems = append(elems, sv)
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		// sorted so iteration order in expressions is stable across runs
		keys := slices.Sorted(maps.Keys(val))
		dict := starlark.NewDict(len(keys))
		for _, k := range keys {
			sv, err := ToStarlark(val[k], rows)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			_ = dict.SetKey(starlark.String(k), sv) // a fresh dict is never frozen
		}
		return dict, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a Starlark value", v)
}

// FromStarlark converts an expression result to a row value: string, int64,
// float64, bool, time.Time, core.Reference, []any, map[string]any or nil.
func FromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		n, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s is out of range", val.String())
		}
		return n, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Bool:
		return bool(val), nil
	case DateValue:
		return time.Time(val), nil
	case *RowValue:
		return val.ref, nil
	case *starlark.List:
		return fromSequence(val)
	case starlark.Tuple:
		return fromSequence(val)
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, kv := range val.Items() {
			k, ok := kv[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", kv[0].Type())
			}
			gv, err := FromStarlark(kv[1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", string(k), err)
			}
			out[string(k)] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s values cannot be stored in a field", v.Type())
}

func fromSequence(seq starlark.Indexable) ([]any, error) {
	out := make([]any, seq.Len())
	for i := range out {
		gv, err := FromStarlark(seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = gv
	}
	return out, nil
}
