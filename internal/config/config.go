// Package config loads pantry settings from the environment, optionally
// seeded from a .env file. All variables carry the PANTRY_ prefix.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"
)

const prefix = "pantry"

// Sync backends.
const (
	BackendRPC   = "rpc"
	BackendRedis = "redis"
)

// Config holds the CLI settings.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/pantry.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`

	// Locale drives name sorting, e.g. "en", "de", "tr".
	Locale   string `envconfig:"LOCALE" default:"en"`
	SoonDays int    `envconfig:"SOON_DAYS" default:"7"`

	SyncBackend string        `envconfig:"SYNC_BACKEND" default:"rpc"`
	SyncURL     string        `envconfig:"SYNC_URL" default:"http://localhost:8090"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	SyncTTL     time.Duration `envconfig:"SYNC_TTL" default:"10m"`
	SyncTimeout time.Duration `envconfig:"SYNC_TIMEOUT" default:"15s"`

	// LookupSource is a URL, .json or .xlsx file with {IBN, Title} rows.
	LookupSource string `envconfig:"LOOKUP_SOURCE"`
}

// ServerConfig holds the sync daemon settings.
type ServerConfig struct {
	Addr          string        `envconfig:"SYNCD_ADDR" default:":8090"`
	DBPath        string        `envconfig:"SYNCD_DB_PATH" default:"./data/syncd.db"`
	RedisURL      string        `envconfig:"SYNCD_REDIS_URL"`
	MaxTTL        time.Duration `envconfig:"SYNCD_MAX_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SYNCD_SWEEP_INTERVAL" default:"1m"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServer reads .env (if present) and then the environment.
func LoadServer() (*ServerConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("PANTRY_SYNCD_SWEEP_INTERVAL must be positive")
	}
	return &cfg, nil
}

// Language returns the parsed Locale, falling back to English.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

func (c *Config) validate() error {
	switch c.SyncBackend {
	case BackendRPC:
		if c.SyncURL == "" {
			return fmt.Errorf("PANTRY_SYNC_URL is required for the %q backend", BackendRPC)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("PANTRY_REDIS_URL is required for the %q backend", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown PANTRY_SYNC_BACKEND %q (want %q or %q)", c.SyncBackend, BackendRPC, BackendRedis)
	}
	if c.SoonDays < 0 {
		return fmt.Errorf("PANTRY_SOON_DAYS must not be negative")
	}
	return nil
}

// loadDotEnv loads .env from the working directory. Variables already set
// in the environment win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}
