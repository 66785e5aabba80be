// Package config provides configuration management for the stoat CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Supported serializers.
const (
	SerializerJSON    = "json"
	SerializerMsgpack = "msgpack"
)

// DatabaseURLEnv overrides store.url when set.
const DatabaseURLEnv = "STOAT_DATABASE_URL"

// Config represents the stoat CLI configuration
type Config struct {
	// Version of the config file format
	Version string `yaml:"version"`

	// Store selects and configures the event stream backend
	Store StoreConfig `yaml:"store"`

	// Redis configuration, used by the redis driver
	Redis RedisConfig `yaml:"redis"`

	// Serializer encodes event payloads (json, msgpack)
	Serializer string `yaml:"serializer"`

	// Aggregate configuration
	Aggregate AggregateConfig `yaml:"aggregate"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// StoreConfig contains event stream backend settings
type StoreConfig struct {
	// Driver is the store driver (memory, postgres, redis)
	Driver string `yaml:"driver"`

	// URL is the database connection string (postgres only)
	URL string `yaml:"url,omitempty"`

	// Schema is the database schema to use (postgres only)
	Schema string `yaml:"schema"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// AggregateConfig contains aggregate behavior settings
type AggregateConfig struct {
	// Strict rejects stored events the aggregate has no handler for
	Strict bool `yaml:"strict"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`

	// Format is text or json
	Format string `yaml:"format"`
}

// ObservabilityConfig contains metrics and tracing settings
type ObservabilityConfig struct {
	// ServiceName labels metrics and spans
	ServiceName string `yaml:"service_name"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Store: StoreConfig{
			Driver: DriverPostgres,
			Schema: "stoat",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "stoat",
		},
		Serializer: SerializerJSON,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			ServiceName: "stoat",
		},
	}
}

// ConfigFileName is the default config file name
const ConfigFileName = "stoat.yaml"

// Load loads configuration from the specified directory
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
// Fields missing from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves the configuration to the specified directory
func (c *Config) Save(dir string) error {
	return c.SaveFile(filepath.Join(dir, ConfigFileName))
}

// SaveFile saves the configuration to a specific file path
func (c *Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Exists checks if a config file exists in the directory
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindConfig searches for a config file starting from dir and going up
func FindConfig(dir string) (string, *Config, error) {
	current := dir
	for {
		configPath := filepath.Join(current, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := LoadFile(configPath)
			if err != nil {
				return "", nil, err
			}
			return current, cfg, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached root, config not found
			return "", nil, os.ErrNotExist
		}
		current = parent
	}
}

// DatabaseURL returns the postgres connection string.
// STOAT_DATABASE_URL wins over the file; environment references in the
// file are expanded.
func (c *Config) DatabaseURL() string {
	if v := os.Getenv(DatabaseURLEnv); v != "" {
		return v
	}
	return os.ExpandEnv(c.Store.URL)
}

// Validate validates the configuration
func (c *Config) Validate() []string {
	var errors []string

	switch c.Store.Driver {
	case "":
		errors = append(errors, "store.driver is required")
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.DatabaseURL() == "" {
			errors = append(errors, "store.url or "+DatabaseURLEnv+" is required for postgres driver")
		}
	default:
		errors = append(errors, "store.driver must be 'memory', 'postgres' or 'redis'")
	}

	if c.Store.Driver == DriverRedis && c.Redis.Addr == "" {
		errors = append(errors, "redis.addr is required for redis driver")
	}

	switch c.Serializer {
	case SerializerJSON, SerializerMsgpack:
	default:
		errors = append(errors, "serializer must be 'json' or 'msgpack'")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, "logging.level must be one of debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errors = append(errors, "logging.format must be 'text' or 'json'")
	}

	return errors
}

// GenerateYAML generates YAML content with comments
func GenerateYAML(cfg *Config) string {
	return `# Stoat Configuration File
# This file configures the stoat CLI

version: "1"

# Event stream backend
store:
  # Driver: memory, postgres or redis
  driver: "` + cfg.Store.Driver + `"

  # Connection URL (postgres only, ` + DatabaseURLEnv + ` takes precedence)
  url: "${DATABASE_URL}"

  # Database schema (postgres only)
  schema: "` + cfg.Store.Schema + `"

# Redis connection (redis driver only)
redis:
  addr: "` + cfg.Redis.Addr + `"
  db: ` + fmt.Sprint(cfg.Redis.DB) + `
  key_prefix: "` + cfg.Redis.KeyPrefix + `"

# Payload encoding: json or msgpack
serializer: "` + cfg.Serializer + `"

aggregate:
  # Reject stored events the aggregate cannot handle
  strict: ` + fmt.Sprint(cfg.Aggregate.Strict) + `

logging:
  level: "` + cfg.Logging.Level + `"
  format: "` + cfg.Logging.Format + `"

observability:
  service_name: "` + cfg.Observability.ServiceName + `"
`
}
