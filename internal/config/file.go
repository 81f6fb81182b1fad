package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults carries flag defaults read from the optional configuration
// file. Zero values mean "not set"; flags always win over file values.
type Defaults struct {
	Variant string            `toml:"variant"`
	Format  string            `toml:"format"`
	Mirrors []string          `toml:"mirrors"`
	Color   string            `toml:"color"`
	Hooks   map[string]string `toml:"hooks"`
}

// DefaultsPath returns the defaults file location: DEBSTRAP_CONFIG if set,
// otherwise ~/.config/debstrap/config.toml.
func DefaultsPath() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "debstrap", "config.toml")
}

// LoadDefaults reads the defaults file at path. A missing file is not an
// error and yields zero Defaults.
func LoadDefaults(path string) (Defaults, error) {
	var defaults Defaults
	if path == "" {
		return defaults, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaults, nil
	}
	if _, err := toml.DecodeFile(path, &defaults); err != nil {
		return Defaults{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return defaults, nil
}
