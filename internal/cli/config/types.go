// Package config loads leapfake CLI configuration.
//
// Settings are layered, lowest precedence first: built-in defaults, the
// project's leapfake.yaml, LEAPFAKE_* environment variables, and flags
// that were explicitly set on the command line.
package config

import (
	intconfig "github.com/leapstack-labs/leapfake/internal/config"
)

// Config holds all CLI configuration options.
type Config struct {
	intconfig.Config `koanf:",squash"`

	// ProjectRoot anchors relative paths from the config file and defaults.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}
