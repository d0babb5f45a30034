package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapfake.yaml"
	ConfigFileNameAlt = "leapfake.yml"
)

// LoadFromDir reads the config file in dir with defaults applied. It
// returns nil and no error when dir has no config file.
func LoadFromDir(dir string) (*Config, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// FindConfigFile returns the path of the config file in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range [...]string{ConfigFileName, ConfigFileNameAlt} {
		if path := filepath.Join(dir, name); fileExists(path) {
			return path
		}
	}
	return ""
}

// FindProjectRoot returns the nearest directory at or above start that holds
// a config file, or "".
func FindProjectRoot(start string) string {
	for dir := start; ; {
		if FindConfigFile(dir) != "" {
			return dir
		}
		up := filepath.Dir(dir)
		if up == dir {
			return ""
		}
		dir = up
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
