// Package macro resolves macro inheritance.
//
// Macros are declared in document order and resolved on first use. A
// resolved macro is the flattened field list of its whole include chain and
// is cached for the rest of the run.
package macro

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapfake/internal/loader"
	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Resolved is a macro after inheritance merge.
type Resolved struct {
	Name    string
	Line    int
	Fields  []*loader.Field
	Friends []*loader.Declaration
}

// Resolver resolves macros for one generation run. It is not safe for
// concurrent use.
type Resolver struct {
	file     string
	declared map[string]*loader.Declaration
	cache    map[string]*Resolved
	visiting map[string]bool
	path     []string
}

// NewResolver creates an empty resolver for file.
func NewResolver(file string) *Resolver {
	if file == "" {
		file = core.DefaultFilename
	}
	return &Resolver{
		file:     file,
		declared: make(map[string]*loader.Declaration),
		cache:    make(map[string]*Resolved),
		visiting: make(map[string]bool),
	}
}

// Declare registers a macro definition. Later declarations with the same name
// replace earlier ones; the validator rejects duplicates before generation.
func (r *Resolver) Declare(d *loader.Declaration) {
	r.declared[d.Name] = d
	delete(r.cache, d.Name)
}

// Declared reports whether a macro has been declared.
func (r *Resolver) Declared(name string) bool {
	_, ok := r.declared[name]
	return ok
}

// Resolve returns the flattened macro. line is where the reference appears
// and locates the error for an undeclared macro.
func (r *Resolver) Resolve(name string, line int) (*Resolved, error) {
	if resolved, ok := r.cache[name]; ok {
		return resolved, nil
	}

	d, ok := r.declared[name]
	if !ok {
		return nil, core.NewNameError(r.file, line, "Cannot find macro named `%s`", name)
	}

	if r.visiting[name] {
		cycle := append(append([]string{}, r.path...), name)
		closing := r.declared[r.path[len(r.path)-1]]
		return nil, core.NewDataGenError(r.file, closing.Line,
			"macro inheritance cycle: %s", strings.Join(cycle[slices.Index(cycle, name):], " -> "))
	}

	r.visiting[name] = true
	r.path = append(r.path, name)
	defer func() {
		delete(r.visiting, name)
		r.path = r.path[:len(r.path)-1]
	}()

	resolved := &Resolved{Name: d.Name, Line: d.Line}
	if d.Include != "" {
		parent, err := r.Resolve(d.Include, d.IncludeLine)
		if err != nil {
			return nil, err
		}
		resolved.Fields = append(resolved.Fields, parent.Fields...)
		resolved.Friends = append(resolved.Friends, parent.Friends...)
	}
	resolved.Fields = Merge(resolved.Fields, d.Fields)
	resolved.Friends = append(resolved.Friends, d.Friends...)

	r.cache[name] = resolved
	return resolved, nil
}

// Apply flattens an object template: the included macro's fields and friends
// first, then the template's own.
func (r *Resolver) Apply(d *loader.Declaration) (fields []*loader.Field, friends []*loader.Declaration, err error) {
	if d.Include == "" {
		return d.Fields, d.Friends, nil
	}
	parent, err := r.Resolve(d.Include, d.IncludeLine)
	if err != nil {
		return nil, nil, err
	}
	friends = append(append(friends, parent.Friends...), d.Friends...)
	return Merge(parent.Fields, d.Fields), friends, nil
}

// Merge overlays child fields on base. A field present in both keeps its
// base position and takes the child's spec; new fields are appended.
func Merge(base, child []*loader.Field) []*loader.Field {
	out := make([]*loader.Field, len(base), len(base)+len(child))
	copy(out, base)

	pos := make(map[string]int, len(out))
	for i, f := range out {
		pos[f.Name] = i
	}
	for _, f := range child {
		if i, ok := pos[f.Name]; ok {
			out[i] = f
			continue
		}
		pos[f.Name] = len(out)
		out = append(out, f)
	}
	return out
}
