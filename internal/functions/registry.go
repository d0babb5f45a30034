package functions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Registry maps function names to functions. Plugin functions are registered
// under dotted names such as "utils.double".
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Builtins returns a new registry holding the built-in functions.
func Builtins() *Registry {
	r := NewRegistry()
	for _, fn := range builtins() {
		r.MustRegister(fn)
	}
	return r
}

// Register adds a function. Registering a name twice is an error.
func (r *Registry) Register(fn *Function) error {
	if fn == nil || fn.Name == "" {
		return errors.New("function name not specified")
	}
	if fn.Call == nil {
		return fmt.Errorf("function %q has no implementation", fn.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[fn.Name]; exists {
		return fmt.Errorf("function %q is already registered", fn.Name)
	}
	r.funcs[fn.Name] = fn
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(fn *Function) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// Lookup returns a function by name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Get returns a function or an UnknownFunctionError.
func (r *Registry) Get(name string) (*Function, error) {
	if fn, ok := r.Lookup(name); ok {
		return fn, nil
	}
	return nil, &UnknownFunctionError{Name: name, Available: r.Names()}
}

// Names returns all registered names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns all registered functions sorted by name.
func (r *Registry) Functions() []*Function {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Function, 0, len(names))
	for _, name := range names {
		out = append(out, r.funcs[name])
	}
	return out
}

// Namespaces groups dotted names by their prefix: "utils" → {"double": fn}.
func (r *Registry) Namespaces() map[string]map[string]*Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]map[string]*Function)
	for name, fn := range r.funcs {
		ns, member, ok := strings.Cut(name, ".")
		if !ok {
			continue
		}
		if result[ns] == nil {
			result[ns] = make(map[string]*Function)
		}
		result[ns][member] = fn
	}
	return result
}

// Clone returns a registry with the same functions.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for name, fn := range r.funcs {
		c.funcs[name] = fn
	}
	return c
}

// UnknownFunctionError is returned when an unregistered function is requested.
type UnknownFunctionError struct {
	Name      string
	Available []string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function `%s`", e.Name)
}

// CallError wraps a failure raised while calling name into a located
// DataGenError. Recipe errors pass through unchanged.
func CallError(file string, line int, name string, err error) error {
	if _, ok := core.AsError(err); ok {
		return err
	}
	return core.WrapError(core.KindDataGen, file, line, err, "Cannot evaluate function `%s`: %s", name, err.Error())
}

// UnknownError converts an UnknownFunctionError into a located NameError.
func UnknownError(file string, line int, err *UnknownFunctionError) error {
	return core.WrapError(core.KindName, file, line, err, "Cannot find function named `%s`", err.Name)
}
