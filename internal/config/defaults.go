package config

// Default configuration values.
const (
	DefaultOutputFormat = "auto"
	DefaultPluginsDir   = "plugins"
	DefaultStatePath    = ".leapfake/state.db"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
)

// Accepted values for enumerated settings.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// Defaults returns the default settings keyed like the config file.
func Defaults() map[string]any {
	return map[string]any{
		"output_format": DefaultOutputFormat,
		"plugins_dir":   DefaultPluginsDir,
		"state_path":    DefaultStatePath,
		"record_runs":   false,
		"log_level":     DefaultLogLevel,
		"log_format":    DefaultLogFormat,
	}
}

// ApplyDefaults fills unset fields of c.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.PluginsDir == "" {
		c.PluginsDir = DefaultPluginsDir
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}
