package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "stoat", cfg.Store.Schema)
	assert.Equal(t, SerializerJSON, cfg.Serializer)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Aggregate.Strict)
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")

	tests := []struct {
		name       string
		modify     func(*Config)
		wantErrors int
	}{
		{
			name:       "valid default config with postgres URL",
			modify:     func(c *Config) { c.Store.URL = "postgres://localhost/db" },
			wantErrors: 0,
		},
		{
			name:       "valid memory driver",
			modify:     func(c *Config) { c.Store.Driver = DriverMemory },
			wantErrors: 0,
		},
		{
			name:       "valid redis driver",
			modify:     func(c *Config) { c.Store.Driver = DriverRedis },
			wantErrors: 0,
		},
		{
			name:       "redis without address",
			modify:     func(c *Config) { c.Store.Driver = DriverRedis; c.Redis.Addr = "" },
			wantErrors: 1,
		},
		{
			name:       "missing driver",
			modify:     func(c *Config) { c.Store.Driver = "" },
			wantErrors: 1,
		},
		{
			name:       "invalid driver",
			modify:     func(c *Config) { c.Store.Driver = "mysql" },
			wantErrors: 1,
		},
		{
			name:       "postgres without URL",
			modify:     func(c *Config) { c.Store.URL = "" },
			wantErrors: 1,
		},
		{
			name: "invalid serializer and level",
			modify: func(c *Config) {
				c.Store.Driver = DriverMemory
				c.Serializer = "protobuf"
				c.Logging.Level = "verbose"
			},
			wantErrors: 2,
		},
		{
			name:       "invalid log format",
			modify:     func(c *Config) { c.Store.Driver = DriverMemory; c.Logging.Format = "xml" },
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			errors := cfg.Validate()
			assert.Equal(t, tt.wantErrors, len(errors), "errors: %v", errors)
		})
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	t.Run("environment override", func(t *testing.T) {
		t.Setenv(DatabaseURLEnv, "postgres://env/db")
		cfg := DefaultConfig()
		cfg.Store.URL = "postgres://file/db"

		assert.Equal(t, "postgres://env/db", cfg.DatabaseURL())
		assert.Empty(t, DefaultConfig().Validate())
	})

	t.Run("expands references", func(t *testing.T) {
		t.Setenv(DatabaseURLEnv, "")
		t.Setenv("DATABASE_URL", "postgres://expanded/db")
		cfg := DefaultConfig()
		cfg.Store.URL = "${DATABASE_URL}"

		assert.Equal(t, "postgres://expanded/db", cfg.DatabaseURL())
	})
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Store.URL = "postgres://localhost/test"
	cfg.Serializer = SerializerMsgpack
	cfg.Aggregate.Strict = true

	require.NoError(t, cfg.Save(tmpDir))

	_, err := os.Stat(filepath.Join(tmpDir, ConfigFileName))
	require.NoError(t, err)

	loaded, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, cfg, loaded)
}

func TestLoadFile(t *testing.T) {
	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0644))

		cfg, err := LoadFile(path)

		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.Store.Driver)
		assert.Equal(t, SerializerJSON, cfg.Serializer)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("store: [\n"), 0644))

		_, err := LoadFile(path)

		assert.ErrorContains(t, err, "config: failed to parse")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	assert.False(t, Exists(tmpDir))

	require.NoError(t, DefaultConfig().Save(tmpDir))

	assert.True(t, Exists(tmpDir))
}

func TestFindConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Observability.ServiceName = "root-service"
	require.NoError(t, cfg.Save(tmpDir))

	nested := filepath.Join(tmpDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	foundDir, foundCfg, err := FindConfig(nested)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, foundDir)
	assert.Equal(t, "root-service", foundCfg.Observability.ServiceName)
}

func TestGenerateYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = DriverRedis
	cfg.Serializer = SerializerMsgpack

	content := GenerateYAML(cfg)

	assert.Contains(t, content, "# Stoat Configuration File")
	assert.Contains(t, content, `driver: "redis"`)
	assert.Contains(t, content, `serializer: "msgpack"`)

	var parsed Config
	require.NoError(t, yaml.Unmarshal([]byte(content), &parsed))
	assert.Equal(t, DriverRedis, parsed.Store.Driver)
	assert.Equal(t, "stoat", parsed.Redis.KeyPrefix)
	assert.Equal(t, "${DATABASE_URL}", parsed.Store.URL)
}
