// Package config loads pankat's process-wide configuration: the input and
// output directories, the filename-flattening flag, and the optional
// preview-server listen address.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/nixcloud/pankat/internal/perrors"
)

// Config is immutable once returned by Load.
type Config struct {
	InputDir   string `yaml:"input_dir"`
	OutputDir  string `yaml:"output_dir"`
	Flat       bool   `yaml:"flat"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Overrides carries CLI-flag values that take precedence over the config
// file when set.
type Overrides struct {
	InputDir   string
	OutputDir  string
	Flat       bool
	FlatSet    bool
	ListenAddr string
}

// Load first loads a sibling .env file for local secrets (so its values are
// visible to the expansion below), then reads the YAML config file at path
// (if it exists), expands environment variables in its raw bytes, applies
// overrides, and validates the result: both directories must be set, and
// input_dir must be an existing directory. A missing configPath is not
// itself an error — overrides alone may be sufficient for a one-shot build.
func Load(configPath string, overrides Overrides) (*Config, error) {
	loadEnvFile(filepath.Join(filepath.Dir(configPath), ".env"))

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, perrors.WrapError(err, perrors.CategoryConfig, "reading config file").
				WithContext("path", configPath).Build()
		}
		if err == nil {
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, perrors.WrapError(err, perrors.CategoryConfig, "parsing config file").
					WithContext("path", configPath).Build()
			}
		}
	}

	if overrides.InputDir != "" {
		cfg.InputDir = overrides.InputDir
	}
	if overrides.OutputDir != "" {
		cfg.OutputDir = overrides.OutputDir
	}
	if overrides.FlatSet {
		cfg.Flat = overrides.Flat
	}
	if overrides.ListenAddr != "" {
		cfg.ListenAddr = overrides.ListenAddr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.InputDir == "" {
		return perrors.ConfigError("input_dir is required").Build()
	}
	if c.OutputDir == "" {
		return perrors.ConfigError("output_dir is required").Build()
	}
	info, err := os.Stat(c.InputDir)
	if err != nil {
		return perrors.WrapError(err, perrors.CategoryConfig, "resolving input_dir").
			WithContext("input_dir", c.InputDir).Build()
	}
	if !info.IsDir() {
		return perrors.ConfigError(fmt.Sprintf("input_dir %q is not a directory", c.InputDir)).Build()
	}
	return nil
}

// loadEnvFile loads a .env file if present; a missing file is not an error.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}
