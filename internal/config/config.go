// ABOUTME: Configuration loader for the Cashly client
// ABOUTME: Reads an optional .env file then parses CASHLY_* environment variables

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultAPIURL is the backend used when nothing else is configured
const DefaultAPIURL = "http://localhost:7000/api/v1"

// Store backends
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	// Backend
	APIURL      string        `env:"CASHLY_API_URL" envDefault:"http://localhost:7000/api/v1"`
	HTTPTimeout time.Duration `env:"CASHLY_HTTP_TIMEOUT" envDefault:"30s"`

	// Persistence
	ConfigDir   string `env:"CASHLY_CONFIG_DIR"`
	Store       string `env:"CASHLY_STORE" envDefault:"file"`
	RedisURL    string `env:"CASHLY_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix string `env:"CASHLY_REDIS_PREFIX" envDefault:"cashly"`

	// Session
	RefreshInterval time.Duration `env:"CASHLY_REFRESH_INTERVAL" envDefault:"10m"`
	CallbackAddr    string        `env:"CASHLY_CALLBACK_ADDR" envDefault:"127.0.0.1:7777"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env from the working directory, if present, and parses the
// process environment
func Load() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom parses the given environment instead of the process one
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.APIURL = NormalizeURL(cfg.APIURL)
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = DefaultConfigDir()
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the env parser cannot
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CASHLY_API_URL must not be empty")
	}
	switch c.Store {
	case StoreFile:
		if c.ConfigDir == "" {
			return fmt.Errorf("cannot determine config directory; set CASHLY_CONFIG_DIR")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("CASHLY_REDIS_URL is required when CASHLY_STORE=redis")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("CASHLY_STORE must be %q, %q or %q, got %q", StoreFile, StoreRedis, StoreMemory, c.Store)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("CASHLY_REFRESH_INTERVAL must be at least 1s, got %s", c.RefreshInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("CASHLY_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/cashly, or ~/.config/cashly
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashly")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cashly")
}

// NormalizeURL trims whitespace and trailing slashes and adds a scheme when missing
func NormalizeURL(u string) string {
	return strings.TrimRight(ensureScheme(strings.TrimSpace(u)), "/")
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
