// Package sink provides the sink registry and the shared plumbing for sinks
// that write generated rows to files, terminals and databases.
//
// Concrete sinks live in pkg/sinks subdirectories and register themselves
// in init(). Import them with a blank identifier:
//
//	import _ "github.com/leapstack-labs/leapfake/pkg/sinks/sqlite"
package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Sink is a core.Sink that is configured before the first row.
type Sink interface {
	core.Sink

	// Open prepares the sink (creates files, connects to the database).
	Open(ctx context.Context, cfg Config) error
}

// Config configures a sink.
type Config struct {
	// Type is the registered sink name ("csv", "sqlite", ...).
	Type string `koanf:"type"`

	// Path is a file, a directory or a DSN depending on the sink.
	Path string `koanf:"path"`

	// TablePrefix is prepended to table names by SQL sinks.
	TablePrefix string `koanf:"table_prefix"`

	// Params holds sink specific settings, decoded with DecodeParams.
	Params map[string]any `koanf:"params"`

	// Writer receives output of stream sinks (debug, jsonl, table) when
	// Path is empty. Nil means os.Stdout.
	Writer io.Writer `koanf:"-"`
}

// DecodeParams decodes cfg.Params into out. Unknown keys are an error.
func (c Config) DecodeParams(out any) error {
	if len(c.Params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(c.Params); err != nil {
		return fmt.Errorf("invalid %s sink params: %w", c.Type, err)
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Sink)
)

// Register adds a sink factory to the registry.
// Called by sink implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Sink) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a sink factory by name.
func Get(name string) (func(*slog.Logger) Sink, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a sink instance for cfg.Type without opening it.
// The logger is passed to the sink constructor (nil uses discard logger).
func New(cfg Config, logger *slog.Logger) (Sink, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("sink type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownSinkError{Type: cfg.Type, Available: List()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// Open creates and opens a sink.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error) {
	s, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns all registered sink names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a sink type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownSinkError is returned when an unknown sink type is requested.
type UnknownSinkError struct {
	Type      string
	Available []string
}

func (e *UnknownSinkError) Error() string {
	return fmt.Sprintf("unknown sink type %q\nAvailable sinks: %v\nHint: Check output_format in leapfake.yaml or --output-format", e.Type, e.Available)
}
