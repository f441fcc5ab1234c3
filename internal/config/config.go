// Package config loads stepwise settings: built-in defaults, then an optional
// YAML file, then STEPWISE_* environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit path is given. A missing default file is not an error.
const DefaultFile = "stepwise.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	// ProtocolsDir points at a directory of protocol documents. Empty means built-ins.
	ProtocolsDir string `yaml:"protocols_dir" env:"STEPWISE_PROTOCOLS_DIR"`

	Store      StoreConfig      `yaml:"store" envPrefix:"STEPWISE_STORE_"`
	Redis      RedisConfig      `yaml:"redis" envPrefix:"STEPWISE_REDIS_"`
	HTTP       HTTPConfig       `yaml:"http" envPrefix:"STEPWISE_HTTP_"`
	Log        LogConfig        `yaml:"log" envPrefix:"STEPWISE_LOG_"`
	Encryption EncryptionConfig `yaml:"encryption" envPrefix:"STEPWISE_ENCRYPTION_"`
	PII        PIIConfig        `yaml:"pii" envPrefix:"STEPWISE_PII_"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the records directory (file) or database file (sqlite).
	Path string `yaml:"path" env:"PATH"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// EncryptionConfig holds base64 AES-256 keys. An empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `yaml:"key" env:"KEY"`
	FallbackKeys []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
}

// PIIConfig lists regular expressions matched against answer keys.
type PIIConfig struct {
	Patterns []string `yaml:"patterns" env:"PATTERNS" envSeparator:","`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "stepwise:",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. When path is empty DefaultFile is tried.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field rules.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case DriverMemory, DriverRedis:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store driver %q requires a path", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, _, err := c.Encryption.Keys(); err != nil {
		return err
	}
	for _, p := range c.PII.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
	}
	return nil
}

// Keys decodes the active and fallback keys. It returns a nil active key when
// encryption is disabled.
func (e EncryptionConfig) Keys() ([]byte, [][]byte, error) {
	if e.Key == "" {
		if len(e.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("fallback keys require an active encryption key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption key: %w", err)
	}
	fallbacks := make([][]byte, 0, len(e.FallbackKeys))
	for i, raw := range e.FallbackKeys {
		k, err := decodeKey(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		fallbacks = append(fallbacks, k)
	}
	return active, fallbacks, nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
