// Package plugin loads user functions from .star files. Each file becomes a
// namespace named after the file: utils.star exports utils.double and so on.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions are the dialect options for plugin files.
var fileOptions = &syntax.FileOptions{
	Set:       true,
	While:     true,
	Recursion: false,
}

// Loader scans a directory for .star files and executes them as modules.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a plugin loader for dir (nil logger uses a discard logger).
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: dir, logger: logger}
}

// Module is an executed plugin file.
type Module struct {
	// Namespace is derived from the filename ("utils" from "utils.star").
	Namespace string

	// Path is the path to the .star file.
	Path string

	// Exports holds exported globals (names not starting with _).
	Exports starlark.StringDict

	// Defs describes the file's public defs as written.
	Defs Outline
}

// Load executes every .star file in the directory, in name order.
// A missing directory loads nothing.
func (l *Loader) Load() ([]*Module, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access plugins directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugins path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugins directory: %w", err)
	}

	modules := make([]*Module, 0, len(files))
	for _, file := range files {
		module, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded plugin", "namespace", module.Namespace, "exports", len(module.Exports))
		modules = append(modules, module)
	}
	return modules, nil
}

// LoadFile executes a single .star file.
func (l *Loader) LoadFile(path string) (*Module, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the plugins directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if err := validateNamespace(namespace); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	defs, err := outline(path, content)
	if err != nil {
		lerr := &LoadError{File: path, Message: err.Error()}
		var serr syntax.Error
		if errors.As(err, &serr) {
			lerr.Line, lerr.Message = int(serr.Pos.Line), serr.Msg
		}
		return nil, lerr
	}

	thread := &starlark.Thread{
		Name: namespace + ".star",
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Debug("plugin print", "namespace", namespace, "msg", msg)
		},
	}
	thread.SetMaxExecutionSteps(maxSteps)

	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, content, nil)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("execution failed: %v", err)}
	}
	globals.Freeze()

	m := &Module{Namespace: namespace, Path: path, Exports: make(starlark.StringDict), Defs: defs}
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			m.Exports[name] = value
		}
	}
	return m, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateNamespace checks that a file name can be used as a Starlark
// identifier in expressions.
func validateNamespace(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("file name %q is not a valid namespace: use letters, digits and underscores, not starting with a digit", name)
	}
	return nil
}

// LoadError reports a plugin file that could not be loaded or registered.
// Line is 0 when the problem is not tied to a line.
type LoadError struct {
	File    string
	Line    int
	Message string
}

func (e *LoadError) Error() string {
	loc := "plugins/" + filepath.Base(e.File)
	if e.Line > 0 {
		loc += ":" + strconv.Itoa(e.Line)
	}
	return loc + ": " + e.Message
}
