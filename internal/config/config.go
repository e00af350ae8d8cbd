// Package config provides unified configuration for the quickset server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthLevel controls which operations require authentication.
type AuthLevel string

const (
	// AuthNone disables authentication entirely.
	AuthNone AuthLevel = "none"
	// AuthWrite requires authentication for mutating operations only.
	AuthWrite AuthLevel = "write"
	// AuthRead requires authentication for reads as well as writes.
	AuthRead AuthLevel = "read"
	// AuthAll requires authentication for everything.
	AuthAll AuthLevel = "all"
)

// Config holds the full quickset server configuration.
type Config struct {
	// Host is the listen host.
	Host string `json:"host" yaml:"host"`

	// Port is the listen port.
	Port int `json:"port" yaml:"port"`

	// AuthLevel gates which operations require authentication.
	AuthLevel AuthLevel `json:"auth_level" yaml:"auth_level"`

	// AdminUser and AdminPass seed the admin account when auth is enabled.
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// SeqURL, when set, ships logs to a Seq server alongside the console.
	SeqURL string `json:"seq_url" yaml:"seq_url"`

	// TableDefaultCapacity is used when a table create request omits one.
	TableDefaultCapacity int `json:"table_default_capacity" yaml:"table_default_capacity"`

	// HTTP server timeouts.
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Sync configures external table sources.
	Sync SyncConfig `json:"sync" yaml:"sync"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// SyncConfig configures the periodic external table sync.
type SyncConfig struct {
	// Interval between sync cycles. Zero disables syncing.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Sources lists the external databases to pull tables from.
	Sources []SourceConfig `json:"sources" yaml:"sources"`
}

// SourceConfig describes one external database.
type SourceConfig struct {
	// Name identifies the source in logs.
	Name string `json:"name" yaml:"name"`

	// Driver is "clickhouse" or "sqlite".
	Driver string `json:"driver" yaml:"driver"`

	// ClickHouse connection settings.
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`

	// Path is the database file for the sqlite driver.
	Path string `json:"path" yaml:"path"`

	// Tables lists the tables pulled from this source.
	Tables []SourceTableConfig `json:"tables" yaml:"tables"`
}

// SourceTableConfig maps one external table onto a quickset table.
type SourceTableConfig struct {
	// Source is the table name in the external database.
	Source string `json:"source" yaml:"source"`

	// Target is the quickset table name. Defaults to Source.
	Target string `json:"target" yaml:"target"`

	// Columns maps external columns onto schema columns, in order. The
	// first column must be the integer identifier.
	Columns []SourceColumnConfig `json:"columns" yaml:"columns"`

	// QueryOverride replaces the generated SELECT entirely.
	QueryOverride string `json:"query_override" yaml:"query_override"`

	// Capacity for the target table. Defaults to TableDefaultCapacity.
	Capacity int `json:"capacity" yaml:"capacity"`
}

// SourceColumnConfig is one column mapping.
type SourceColumnConfig struct {
	// SourceName is the column name in the external table. Defaults to Name.
	SourceName string `json:"source_name" yaml:"source_name"`

	// Name is the column name in the quickset schema.
	Name string `json:"name" yaml:"name"`

	// Type is "int" or "string".
	Type string `json:"type" yaml:"type"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "127.0.0.1",
		Port:                 8080,
		AuthLevel:            AuthNone,
		LogLevel:             "info",
		TableDefaultCapacity: 1_000_000,
		HTTP: HTTPConfig{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Sync: SyncConfig{
			Interval: 0,
		},
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.AuthLevel {
	case AuthNone, AuthWrite, AuthRead, AuthAll:
	default:
		return fmt.Errorf("invalid auth_level: %s (must be none, write, read, or all)", c.AuthLevel)
	}

	if c.AuthLevel != AuthNone && (c.AdminUser == "" || c.AdminPass == "") {
		return fmt.Errorf("admin_user and admin_pass are required when auth_level is %s", c.AuthLevel)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.TableDefaultCapacity <= 0 {
		return fmt.Errorf("table_default_capacity must be positive, got %d", c.TableDefaultCapacity)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	for i, src := range c.Sync.Sources {
		if src.Driver != "clickhouse" && src.Driver != "sqlite" {
			return fmt.Errorf("sync source %d: invalid driver %q (must be clickhouse or sqlite)", i, src.Driver)
		}
		if src.Driver == "sqlite" && src.Path == "" {
			return fmt.Errorf("sync source %d: path is required for the sqlite driver", i)
		}
		if src.Driver == "clickhouse" && src.Host == "" {
			return fmt.Errorf("sync source %d: host is required for the clickhouse driver", i)
		}
		for j, tbl := range src.Tables {
			if tbl.Source == "" {
				return fmt.Errorf("sync source %d table %d: source table name is required", i, j)
			}
			if len(tbl.Columns) == 0 && tbl.QueryOverride == "" {
				return fmt.Errorf("sync source %d table %d: columns are required", i, j)
			}
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file, layered over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overlays configuration from QUICKSET_* environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("QUICKSET_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("QUICKSET_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Port)
	}
	if v := os.Getenv("QUICKSET_AUTH_LEVEL"); v != "" {
		cfg.AuthLevel = AuthLevel(v)
	}
	if v := os.Getenv("QUICKSET_ADMIN_USER"); v != "" {
		cfg.AdminUser = v
	}
	if v := os.Getenv("QUICKSET_ADMIN_PASS"); v != "" {
		cfg.AdminPass = v
	}
	if v := os.Getenv("QUICKSET_LOG"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QUICKSET_SEQ_URL"); v != "" {
		cfg.SeqURL = v
	}
	if v := os.Getenv("QUICKSET_TABLE_DEFAULT_CAPACITY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.TableDefaultCapacity)
	}
	if v := os.Getenv("QUICKSET_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Interval = d
		}
	}
	if v := os.Getenv("QUICKSET_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("QUICKSET_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}
	if v := os.Getenv("QUICKSET_HTTP_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.IdleTimeout = d
		}
	}
}
