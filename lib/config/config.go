// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the burrow daemon.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Channel configures the kernel channel.
	Channel ChannelConfig `yaml:"channel"`

	// Import configures the queued backing store.
	Import ImportConfig `yaml:"import"`

	// EnvironmentOverrides contains per-environment overrides,
	// applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Channel *ChannelConfig `yaml:"channel,omitempty"`
	Import  *ImportConfig  `yaml:"import,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for burrow data.
	Root string `yaml:"root"`

	// State is where the local store database lives.
	State string `yaml:"state"`

	// Datapack is the local blob cache directory.
	Datapack string `yaml:"datapack"`

	// Takeover is where a predecessor leaves its session snapshot
	// during graceful restart.
	Takeover string `yaml:"takeover"`
}

// ChannelConfig configures the kernel channel.
type ChannelConfig struct {
	// MountPath is where the filesystem is mounted (informational;
	// the privileged helper performs the mount).
	MountPath string `yaml:"mount_path"`

	// Workers is the channel worker count. Must be >= 1.
	Workers int `yaml:"workers"`

	// MaxWrite is the maximum write size advertised to the kernel,
	// in bytes. Zero selects the built-in default.
	MaxWrite uint32 `yaml:"max_write"`
}

// ImportConfig configures the queued backing store.
type ImportConfig struct {
	// Workers is the import worker count. Must be >= 1.
	Workers int `yaml:"workers"`

	// BatchSize is the maximum requests per import batch. Must be
	// >= 1; 1 disables batching.
	BatchSize int `yaml:"batch_size"`

	// Compression selects datapack compression: "lz4" or "zstd".
	Compression string `yaml:"compression"`
}

// Default returns the default configuration. These defaults ensure
// all fields have sensible zero-values before the config file is
// merged in — the config file itself is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "burrow")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     defaultRoot,
			State:    filepath.Join(defaultRoot, "state"),
			Datapack: filepath.Join(defaultRoot, "datapack"),
			Takeover: filepath.Join(defaultRoot, "state", "takeover.cbor"),
		},
		Channel: ChannelConfig{
			MountPath: filepath.Join(defaultRoot, "mnt"),
			Workers:   4,
		},
		Import: ImportConfig{
			Workers:     8,
			BatchSize:   1,
			Compression: "lz4",
		},
	}
}

// Load loads configuration from the BURROW_CONFIG environment
// variable. There are no fallbacks: if BURROW_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BURROW_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BURROW_CONFIG environment variable not set; " +
			"set it to the path of your burrow.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override config values. The only expansion performed is ${HOME}
// and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the knobs the daemon cannot run without.
func (c *Config) Validate() error {
	if c.Channel.Workers < 1 {
		return fmt.Errorf("channel.workers must be >= 1, got %d", c.Channel.Workers)
	}
	if c.Import.Workers < 1 {
		return fmt.Errorf("import.workers must be >= 1, got %d", c.Import.Workers)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be >= 1, got %d", c.Import.BatchSize)
	}
	switch c.Import.Compression {
	case "lz4", "zstd":
	default:
		return fmt.Errorf("import.compression must be \"lz4\" or \"zstd\", got %q", c.Import.Compression)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific
// override section.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Datapack != "" {
			c.Paths.Datapack = overrides.Paths.Datapack
		}
		if overrides.Paths.Takeover != "" {
			c.Paths.Takeover = overrides.Paths.Takeover
		}
	}

	if overrides.Channel != nil {
		if overrides.Channel.MountPath != "" {
			c.Channel.MountPath = overrides.Channel.MountPath
		}
		if overrides.Channel.Workers != 0 {
			c.Channel.Workers = overrides.Channel.Workers
		}
		if overrides.Channel.MaxWrite != 0 {
			c.Channel.MaxWrite = overrides.Channel.MaxWrite
		}
	}

	if overrides.Import != nil {
		if overrides.Import.Workers != 0 {
			c.Import.Workers = overrides.Import.Workers
		}
		if overrides.Import.BatchSize != 0 {
			c.Import.BatchSize = overrides.Import.BatchSize
		}
		if overrides.Import.Compression != "" {
			c.Import.Compression = overrides.Import.Compression
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BURROW_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["BURROW_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Datapack = expandVars(c.Paths.Datapack, vars)
	c.Paths.Takeover = expandVars(c.Paths.Takeover, vars)
	c.Channel.MountPath = expandVars(c.Channel.MountPath, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}
