package loader

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Accepted keys per declaration kind.
var (
	objectKeys = []string{"object", "nickname", "count", "fields", "friends", "include"}
	macroKeys  = []string{"macro", "fields", "friends", "include"}
	varKeys    = []string{"var", "value"}
)

// Validate checks declaration shapes: exactly one of object/macro/var, only
// accepted keys, unique macro names, unique field names and objects-only
// nesting.
func Validate(doc *Document) error {
	v := &validator{file: doc.File, macros: make(map[string]int)}
	for _, d := range doc.Decls {
		if err := v.declaration(d, true); err != nil {
			return err
		}
		if d.Kind != DeclMacro {
			continue
		}
		if prev, ok := v.macros[d.Name]; ok {
			return core.NewDataGenError(v.file, d.Line, "macro `%s` is already declared on line %d", d.Name, prev)
		}
		v.macros[d.Name] = d.Line
	}
	return nil
}

type validator struct {
	file   string
	macros map[string]int
}

func (v *validator) declaration(d *Declaration, topLevel bool) error {
	hasObject, hasMacro, hasVar := d.HasKey("object"), d.HasKey("macro"), d.HasKey("var")

	switch {
	case hasObject && hasMacro:
		return core.NewDataGenError(v.file, d.Line, "conflicting declarations: `object: %s` cannot also be a `macro`", d.Name)
	case hasVar && (hasObject || hasMacro):
		return core.NewDataGenError(v.file, d.Line, "conflicting declarations: `var` cannot be combined with `object` or `macro`")
	case !hasObject && !hasMacro && !hasVar:
		return core.NewDataGenError(v.file, d.Line, "declaration needs an `object`, `macro` or `var` key")
	}

	if !topLevel && d.Kind != DeclObject {
		return core.NewDataGenError(v.file, d.Line, "only objects can be nested, found %s `%s`", d.Kind, d.Name)
	}

	allowed := acceptedKeys(d.Kind)
	for _, k := range d.Keys {
		if !slices.Contains(allowed, k.Name) {
			return core.NewDataGenError(v.file, d.Line, "unknown key `%s` on %s `%s`; expected one of: %s",
				k.Name, d.Kind, d.Name, strings.Join(allowed, ", "))
		}
	}

	if d.Name == "" {
		return core.NewDataGenError(v.file, d.Line, "%s declaration needs a name", d.Kind)
	}

	seen := make(map[string]int, len(d.Fields))
	for _, f := range d.Fields {
		if prev, ok := seen[f.Name]; ok {
			return core.NewDataGenError(v.file, f.Line, "field `%s` is already defined on line %d", f.Name, prev)
		}
		seen[f.Name] = f.Line

		if nested, ok := f.Spec.(*NestedObject); ok {
			if err := v.declaration(nested.Decl, false); err != nil {
				return err
			}
		}
	}

	for _, friend := range d.Friends {
		if err := v.declaration(friend, false); err != nil {
			return err
		}
	}
	return nil
}

func acceptedKeys(kind DeclKind) []string {
	switch kind {
	case DeclMacro:
		return macroKeys
	case DeclVar:
		return varKeys
	default:
		return objectKeys
	}
}
