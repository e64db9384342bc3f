package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Persistence backend: memory or sqlite
	DataBackend  string
	SQLiteDBPath string

	// Write coalescing for the persistence gateway; zero persists on every
	// mutation.
	PersistDebounce time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		DataBackend:     getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/tally.db"),
		PersistDebounce: getEnvDuration("PERSIST_DEBOUNCE", 0),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.PersistDebounce < 0 {
		problems = append(problems, fmt.Sprintf("invalid persist debounce %v: must not be negative", c.PersistDebounce))
	} else if c.PersistDebounce > time.Minute {
		problems = append(problems, fmt.Sprintf("invalid persist debounce %v: must be at most 1 minute", c.PersistDebounce))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
