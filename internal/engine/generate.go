package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/pkg/core"
)

// Option configures Generate.
type Option func(*Config)

// WithSink sets the row sink.
func WithSink(s core.Sink) Option {
	return func(c *Config) { c.Sink = s }
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithToday sets the reference date for "today" and relative dates.
func WithToday(t time.Time) Option {
	return func(c *Config) { c.Today = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithFunctions replaces the built-in function registry.
func WithFunctions(r *functions.Registry) Option {
	return func(c *Config) { c.Functions = r }
}

// WithFilename names the recipe in error messages.
func WithFilename(name string) Option {
	return func(c *Config) { c.Filename = name }
}

// WithPlugins loads .star plugins from dir.
func WithPlugins(dir string) Option {
	return func(c *Config) { c.PluginsDir = dir }
}

// WithStore records the run in a run history store.
func WithStore(s core.Store) Option {
	return func(c *Config) { c.Store = s }
}

// WithMaxSteps bounds the work of each expression.
func WithMaxSteps(n uint64) Option {
	return func(c *Config) { c.MaxSteps = n }
}

// Generate runs the recipe read from r once. vars are visible to every
// expression and override `var` declarations of the same name.
func Generate(ctx context.Context, r io.Reader, vars map[string]any, opts ...Option) (*Result, error) {
	cfg := Config{Vars: vars}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg).Run(ctx, r)
}
