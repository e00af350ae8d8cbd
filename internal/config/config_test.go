package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, AuthNone, cfg.AuthLevel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1_000_000, cfg.TableDefaultCapacity)
	assert.Equal(t, time.Duration(0), cfg.Sync.Interval)
}

func TestValidate_Failures(t *testing.T) {
	mutations := map[string]func(*Config){
		"bad auth level":  func(c *Config) { c.AuthLevel = "maybe" },
		"auth without creds": func(c *Config) { c.AuthLevel = AuthAll },
		"port too low":    func(c *Config) { c.Port = 0 },
		"port too high":   func(c *Config) { c.Port = 70000 },
		"bad capacity":    func(c *Config) { c.TableDefaultCapacity = 0 },
		"bad log level":   func(c *Config) { c.LogLevel = "verbose" },
		"bad driver": func(c *Config) {
			c.Sync.Sources = []SourceConfig{{Name: "s", Driver: "postgres"}}
		},
		"sqlite without path": func(c *Config) {
			c.Sync.Sources = []SourceConfig{{Name: "s", Driver: "sqlite"}}
		},
		"clickhouse without host": func(c *Config) {
			c.Sync.Sources = []SourceConfig{{Name: "s", Driver: "clickhouse"}}
		},
		"table without source name": func(c *Config) {
			c.Sync.Sources = []SourceConfig{{
				Name: "s", Driver: "sqlite", Path: "/tmp/x.db",
				Tables: []SourceTableConfig{{}},
			}}
		},
		"table without columns": func(c *Config) {
			c.Sync.Sources = []SourceConfig{{
				Name: "s", Driver: "sqlite", Path: "/tmp/x.db",
				Tables: []SourceTableConfig{{Source: "users"}},
			}}
		},
	}

	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestValidate_AuthRequiresCreds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthLevel = AuthWrite
	assert.Error(t, cfg.Validate())

	cfg.AdminUser = "root"
	cfg.AdminPass = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickset.yaml")
	data := `
host: 0.0.0.0
port: 9090
auth_level: write
admin_user: root
admin_pass: secret
table_default_capacity: 500
sync:
  interval: 1m
  sources:
    - name: analytics
      driver: clickhouse
      host: ch.internal
      port: 8123
      database: metrics
      tables:
        - source: events
          target: events
          columns:
            - name: id
              type: int
            - name: label
              type: string
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, AuthWrite, cfg.AuthLevel)
	assert.Equal(t, 500, cfg.TableDefaultCapacity)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)

	// Defaults survive a partial file
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)

	require.Len(t, cfg.Sync.Sources, 1)
	src := cfg.Sync.Sources[0]
	assert.Equal(t, "clickhouse", src.Driver)
	require.Len(t, src.Tables, 1)
	assert.Equal(t, "events", src.Tables[0].Source)
	require.Len(t, src.Tables[0].Columns, 2)
	assert.Equal(t, "label", src.Tables[0].Columns[1].Name)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickset.json")
	data := `{"host": "10.0.0.1", "port": 8888, "log_level": "debug"}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8888", cfg.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/quickset.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "quickset.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUICKSET_HOST", "0.0.0.0")
	t.Setenv("QUICKSET_PORT", "7070")
	t.Setenv("QUICKSET_AUTH_LEVEL", "all")
	t.Setenv("QUICKSET_ADMIN_USER", "root")
	t.Setenv("QUICKSET_ADMIN_PASS", "secret")
	t.Setenv("QUICKSET_LOG", "warn")
	t.Setenv("QUICKSET_TABLE_DEFAULT_CAPACITY", "42")
	t.Setenv("QUICKSET_SYNC_INTERVAL", "90s")
	t.Setenv("QUICKSET_HTTP_READ_TIMEOUT", "5s")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:7070", cfg.Addr())
	assert.Equal(t, AuthAll, cfg.AuthLevel)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 42, cfg.TableDefaultCapacity)
	assert.Equal(t, 90*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
}
