package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds user defaults read from the optional config file.
// Command-line flags take precedence over everything here.
type Config struct {
	// TempDir is where embedded cabinets are extracted during loads.
	// Empty means the system temp directory.
	TempDir string `toml:"temp_dir"`

	// NoSchema disables schema validation by default.
	NoSchema bool `toml:"no_schema"`

	// NoVersionCheck disables the format version gate by default.
	NoVersionCheck bool `toml:"no_version_check"`
}

// LoadConfig reads the config file at path. A missing file or empty path
// yields the zero config without error; a malformed file is an error so
// typos do not silently change behavior.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
