// Package config loads application configuration from environment variables.
// All variables use the COACH_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Log      LogConfig
	BotsPath string // directory of YAML bot definitions for dev/seed mode
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL selects
// the in-memory store seeded from BotsPath.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// bot-record cache.
type CacheConfig struct {
	URL string
}

// AIConfig holds settings for the assistant provider.
type AIConfig struct {
	OpenAI OpenAIConfig
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with COACH_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("COACH_SERVER_PORT", 8080),
			Host: envStr("COACH_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("COACH_DATABASE_URL", ""),
			MaxConns: envInt("COACH_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("COACH_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("COACH_CACHE_URL", ""),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey:  envStr("COACH_AI_OPENAI_API_KEY", ""),
				BaseURL: envStr("COACH_AI_OPENAI_BASE_URL", ""),
			},
		},
		Log: LogConfig{
			Level:  envStr("COACH_LOG_LEVEL", "info"),
			Format: envStr("COACH_LOG_FORMAT", "json"),
		},
		BotsPath: envStr("COACH_BOTS_PATH", "./bots"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("COACH_AI_OPENAI_API_KEY is required")
	}
	if c.Database.URL == "" && c.BotsPath == "" {
		return fmt.Errorf("either COACH_DATABASE_URL or COACH_BOTS_PATH must be set")
	}
	return nil
}

// UsesDatabase reports whether a PostgreSQL store is configured.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
