// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backend selectors for Config.StoreBackend.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	BotToken     string
	Port         string
	DataDir      string
	StoreBackend string // "file" = JSON file per user, "sqlite" = single database
	DBPath       string
	KeygenBin    string
	WorkDir      string // scratch root for generation artifacts
	SessionTTL   time.Duration
	PollTimeout  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		Port:         getEnv("PORT", "8080"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		DBPath:       getEnv("DB_PATH", "./data/solsmith.db"),
		KeygenBin:    getEnv("KEYGEN_BIN", "solana-keygen"),
		WorkDir:      getEnv("WORK_DIR", "./keypairs"),
		SessionTTL:   getEnvDuration("SESSION_TTL", 60*time.Minute),
		PollTimeout:  getEnvDuration("POLL_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.StoreBackend != StoreFile && c.StoreBackend != StoreSQLite {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFile, StoreSQLite, c.StoreBackend)
	}
	if c.StoreBackend == StoreSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when STORE_BACKEND=sqlite")
	}
	if c.KeygenBin == "" {
		return fmt.Errorf("KEYGEN_BIN cannot be empty")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("WORK_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	return nil
}

// UsersDir returns the directory holding per-user JSON records.
func (c *Config) UsersDir() string {
	return filepath.Join(c.DataDir, "users")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	// Bare integers are read as minutes.
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return fallback
}
