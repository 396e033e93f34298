// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath        = "config.toml"
	DefaultHTTPAddr          = ":8080"
	DefaultPGHost            = "127.0.0.1"
	DefaultPGPort            = 5432
	DefaultPGUser            = "postgres"
	DefaultPGDatabase        = "leadrelay"
	DefaultPGSSLMode         = "disable"
	DefaultPaceMinMs         = 1500
	DefaultPaceMaxMs         = 3500
	DefaultSettleMs          = 2000
	DefaultMediaTimeoutSecs  = 30
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Telegram TelegramConfig `toml:"telegram"`
	Dispatch DispatchConfig `toml:"dispatch"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the JWT secret protecting the dispatch API.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TelegramConfig holds options for the telegram messenger backend.
type TelegramConfig struct {
	APIEndpoint string `toml:"api_endpoint"`
	Debug       bool   `toml:"debug"`
}

// DispatchConfig tunes pacing, settle delays, and per-account policy.
type DispatchConfig struct {
	// PaceMinMs/PaceMaxMs bound the randomized pre-send delay in
	// milliseconds; the delay is uniform in [min, max).
	PaceMinMs int `toml:"pace_min_ms"`
	PaceMaxMs int `toml:"pace_max_ms"`
	// SettleMs is the wait after a contact add/import before the peer
	// lookup is retried.
	SettleMs int `toml:"settle_ms"`
	// SerializePerAccount forces dispatches sharing one account to run
	// one at a time instead of racing inside the messaging backend.
	SerializePerAccount *bool `toml:"serialize_per_account"`
	// FloodPerMinute caps dispatch attempts per account per minute.
	// Zero disables the limiter.
	FloodPerMinute int `toml:"flood_per_minute"`
	// MediaTimeoutSeconds bounds remote media fetches.
	MediaTimeoutSeconds int `toml:"media_timeout_seconds"`
}

// PaceMin returns the lower pacing bound as a duration.
func (c DispatchConfig) PaceMin() time.Duration {
	return time.Duration(c.PaceMinMs) * time.Millisecond
}

// PaceMax returns the upper pacing bound as a duration.
func (c DispatchConfig) PaceMax() time.Duration {
	return time.Duration(c.PaceMaxMs) * time.Millisecond
}

// Settle returns the post contact-add settle delay as a duration.
func (c DispatchConfig) Settle() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// Serialize reports whether per-account serialization is enabled (default true).
func (c DispatchConfig) Serialize() bool {
	if c.SerializePerAccount == nil {
		return true
	}
	return *c.SerializePerAccount
}

// MediaTimeout returns the media fetch timeout as a duration.
func (c DispatchConfig) MediaTimeout() time.Duration {
	return time.Duration(c.MediaTimeoutSeconds) * time.Second
}

// Validate rejects configurations the dispatcher cannot run with.
func (c DispatchConfig) Validate() error {
	if c.PaceMinMs < 0 || c.PaceMaxMs < 0 {
		return fmt.Errorf("pacing bounds must be non-negative")
	}
	if c.PaceMaxMs < c.PaceMinMs {
		return fmt.Errorf("pace_max_ms (%d) below pace_min_ms (%d)", c.PaceMaxMs, c.PaceMinMs)
	}
	return nil
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Dispatch: DispatchConfig{
			PaceMinMs:           DefaultPaceMinMs,
			PaceMaxMs:           DefaultPaceMaxMs,
			SettleMs:            DefaultSettleMs,
			MediaTimeoutSeconds: DefaultMediaTimeoutSecs,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Dispatch.Validate(); err != nil {
		return cfg, fmt.Errorf("dispatch config: %w", err)
	}

	return cfg, nil
}
