// Package config reads the optional seltree.yaml project file used by the
// CLI. Command line flags are applied on top of the file values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/seltree/pkg/adapters/file"
)

// FileName is the config file looked up in the definitions folder. The
// definition loader skips it.
const FileName = file.ConfigFileName

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultAddr is the HTTP listen address used by serve.
const DefaultAddr = ":8080"

// Config is the CLI configuration.
type Config struct {
	// Dir is the definitions folder.
	Dir string `yaml:"dir"`
	// MaxDepth bounds block reference nesting. Zero keeps the engine default.
	MaxDepth int `yaml:"max_depth"`
	// HistoryCapacity is the number of variable changes each agent keeps.
	// Nil keeps the engine default.
	HistoryCapacity *int        `yaml:"history_capacity"`
	Store           StoreConfig `yaml:"store"`
	HTTP            HTTPConfig  `yaml:"http"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Path is the folder of the file backend or the database of sqlite.
	Path  string        `yaml:"path"`
	Redis RedisConfig   `yaml:"redis"`
	TTL   time.Duration `yaml:"ttl"`
	// LockTTL bounds how long one agent update may hold the distributed lock.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// RedisConfig holds the redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Dir:   ".",
		Store: StoreConfig{Backend: BackendMemory},
		HTTP:  HTTPConfig{Addr: DefaultAddr},
	}
}

// Load reads path on top of Default. A missing file is not an error when
// optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicit when it is set, otherwise the optional seltree.yaml
// inside dir.
func Resolve(explicit, dir string) (Config, error) {
	if explicit != "" {
		return Load(explicit, false)
	}
	cfg, err := Load(filepath.Join(dir, FileName), true)
	if err == nil && cfg.Dir == "." {
		cfg.Dir = dir
	}
	return cfg, err
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 0 {
		return fmt.Errorf("history_capacity must not be negative")
	}
	return nil
}
