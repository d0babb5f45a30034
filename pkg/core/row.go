package core

import (
	"fmt"
	"strings"
	"time"
)

// Reference points at a generated row of another object.
type Reference struct {
	Object string
	ID     int64
}

func (r Reference) String() string {
	return fmt.Sprintf("%s(%d)", r.Object, r.ID)
}

// Row is one materialized record. Rows are immutable once built; accessors
// hand out copies.
type Row struct {
	object string
	id     int64
	names  []string
	values map[string]any
}

// NewRow builds a row from ordered field names and their values.
func NewRow(object string, id int64, names []string, values map[string]any) *Row {
	n := make([]string, len(names))
	copy(n, names)
	v := make(map[string]any, len(values))
	for _, name := range names {
		v[name] = values[name]
	}
	return &Row{object: object, id: id, names: n, values: v}
}

// Object returns the object type name.
func (r *Row) Object() string { return r.object }

// ID returns the generated identifier, unique per object type.
func (r *Row) ID() int64 { return r.id }

// Fields returns the field names in declaration order.
func (r *Row) Fields() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns a field value.
func (r *Row) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Values returns the field values in declaration order.
func (r *Row) Values() []any {
	out := make([]any, len(r.names))
	for i, name := range r.names {
		out[i] = r.values[name]
	}
	return out
}

// Map returns a copy of the field values keyed by name.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Ref returns a reference to this row.
func (r *Row) Ref() Reference {
	return Reference{Object: r.object, ID: r.id}
}

// String renders the row as Object(id=1, field=value, ...).
func (r *Row) String() string {
	var sb strings.Builder
	sb.WriteString(r.object)
	sb.WriteString("(id=")
	fmt.Fprintf(&sb, "%d", r.id)
	for _, name := range r.names {
		sb.WriteString(", ")
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(FormatValue(r.values[name]))
	}
	sb.WriteString(")")
	return sb.String()
}

// IsValue reports whether v can be stored in a row: nil, a string, bool,
// int64 or float64 scalar, a time.Time or a Reference.
func IsValue(v any) bool {
	switch v.(type) {
	case nil, string, bool, int64, float64, time.Time, Reference:
		return true
	}
	return false
}

// FormatValue renders a row value for text outputs.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case Reference:
		return val.String()
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
