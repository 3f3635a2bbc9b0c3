// Package config provides centralized configuration loaded from environment
// variables. The process takes no flags; everything operational comes from
// the environment (plus an optional .env in development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Subscription source strategies.
const (
	// ModeCache keeps an in-memory replica fed by the change stream.
	ModeCache = "cache"
	// ModeQuery hits the store on every dispatch.
	ModeQuery = "query"
)

// Config holds runtime settings populated from environment variables.
type Config struct {
	// Discord
	DiscordToken    string
	DiscordSendRate float64 // message creations per second

	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Schedule engine
	Timezone      string // the game's canonical civil timezone
	QueueCapacity int

	// Subscriptions
	SubscriptionMode string // cache or query
	ReloadInterval   time.Duration

	// Assets
	CDNURL string

	// Status server
	APIHost          string
	APIPort          int
	CORSAllowOrigins []string

	Environment string // development, staging, production
}

// Load reads configuration from environment variables with sensible
// defaults. Missing credentials or connection strings are fatal.
func Load() (*Config, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN must be set")
	}

	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	mode := envOr("SUBSCRIPTION_MODE", ModeCache)
	if mode != ModeCache && mode != ModeQuery {
		return nil, fmt.Errorf("SUBSCRIPTION_MODE must be %q or %q, got %q", ModeCache, ModeQuery, mode)
	}

	return &Config{
		DiscordToken:    token,
		DiscordSendRate: envFloat("DISCORD_SEND_RATE", 5),

		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		Timezone:      envOr("GAME_TIMEZONE", "America/Los_Angeles"),
		QueueCapacity: envInt("QUEUE_CAPACITY", 10),

		SubscriptionMode: mode,
		ReloadInterval:   time.Duration(envInt("RELOAD_INTERVAL_MINUTES", 15)) * time.Minute,

		CDNURL: envOr("CDN_URL", "https://cdn.thatskyapplication.com"),

		APIHost:          envOr("API_HOST", "0.0.0.0"),
		APIPort:          envInt("API_PORT", envInt("PORT", 8000)),
		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		Environment: envOr("ENVIRONMENT", "development"),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
