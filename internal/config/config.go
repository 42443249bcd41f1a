// Package config provides configuration management for termchat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the completion settings.
const (
	DefaultModel     = "deepseek/deepseek-r1-0528:free"
	DefaultMaxTokens = 1000
)

// Config holds all configuration for termchat.
type Config struct {
	// Endpoint is the chat completions URL requests are POSTed to.
	Endpoint string

	// APIKey is the bearer credential. Required; never logged.
	APIKey string

	// Model is the default model identifier.
	Model string

	// MaxTokens caps the completion length per exchange.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxHistory bounds how many transcript messages are sent per
	// request. 0 sends the full transcript.
	MaxHistory int

	// HTTPTimeout bounds each completion round trip.
	HTTPTimeout time.Duration

	// DataDir is the directory for persistent data (SQLite DB, config.env).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// NoArchive disables conversation persistence.
	NoArchive bool
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// Load <data dir>/config.env into the environment. Existing env
	// vars win: godotenv.Load never overwrites a set variable.
	_ = godotenv.Load(FilePath())

	dataDir := envOr("TERMCHAT_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		Endpoint:     envOr("TERMCHAT_ENDPOINT", ""),
		APIKey:       os.Getenv("OPENROUTER_API_KEY"),
		Model:        envOr("TERMCHAT_MODEL", DefaultModel),
		MaxTokens:    envOrInt("TERMCHAT_MAX_TOKENS", DefaultMaxTokens),
		Temperature:  envOrFloat("TERMCHAT_TEMPERATURE", 0.7),
		MaxHistory:   envOrInt("TERMCHAT_MAX_HISTORY", 0),
		HTTPTimeout:  envOrDuration("TERMCHAT_HTTP_TIMEOUT", 2*time.Minute),
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, "termchat.db"),
		NoArchive:    os.Getenv("TERMCHAT_NO_ARCHIVE") != "",
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required (set it in the environment or run: termchat config set OPENROUTER_API_KEY <key>)")
	}
	return nil
}

// FilePath returns the config file location, <data dir>/config.env.
func FilePath() string {
	return filepath.Join(envOr("TERMCHAT_DATA_DIR", defaultDataDir()), "config.env")
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".termchat"
	}
	return filepath.Join(home, ".termchat")
}
