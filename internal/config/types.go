// Package config provides the project configuration types for leapfake.
// It is decoupled from CLI concerns: the CLI layers flags and environment
// variables on top of what LoadFromDir reads.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config holds project configuration.
type Config struct {
	// OutputFormat is a registered sink name or "auto".
	OutputFormat string `koanf:"output_format"`
	// Output is a file, directory or DSN, depending on the sink.
	Output string `koanf:"output"`

	// Seed is the random seed. Zero picks a new one per run.
	Seed uint64 `koanf:"seed"`
	// Today is the YYYY-MM-DD date relative dates resolve against. Empty
	// means the date of the run.
	Today string `koanf:"today"`

	PluginsDir string `koanf:"plugins_dir"`
	StatePath  string `koanf:"state_path"`
	RecordRuns bool   `koanf:"record_runs"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Vars are passed to every recipe and override its var declarations.
	Vars map[string]string `koanf:"vars"`

	Sink SinkConfig `koanf:"sink"`
}

// SinkConfig holds settings passed through to the sink.
type SinkConfig struct {
	TablePrefix string         `koanf:"table_prefix"`
	Params      map[string]any `koanf:"params"`
}

// VarValues returns Vars as the map the engine takes.
func (c *Config) VarValues() map[string]any {
	if len(c.Vars) == 0 {
		return nil
	}
	vars := make(map[string]any, len(c.Vars))
	for k, v := range c.Vars {
		vars[k] = v
	}
	return vars
}

// TodayDate parses Today. The zero time means "use the run date".
func (c *Config) TodayDate() (time.Time, error) {
	if c.Today == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Today)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid today %q (expected YYYY-MM-DD)", c.Today)
	}
	return t, nil
}

// Validate checks enumerated settings. Sink names are checked when the
// sink is created, since sinks register themselves.
func (c *Config) Validate() error {
	if !slices.Contains(LogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level %q (expected one of %s)", c.LogLevel, strings.Join(LogLevels, ", "))
	}
	if !slices.Contains(LogFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("invalid log_format %q (expected one of %s)", c.LogFormat, strings.Join(LogFormats, ", "))
	}
	if c.OutputFormat == "" {
		return fmt.Errorf("output_format is required")
	}
	if _, err := c.TodayDate(); err != nil {
		return err
	}
	return nil
}
