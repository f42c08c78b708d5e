package api

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the settings of the platform API client.
type Config struct {
	BaseURL    string
	Token      string
	TimeoutMs  int
	MaxRetries int
	LogCalls   bool
}

// DefaultConfig returns a Config pointing at the public platform.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://api.tournesol.app",
		TimeoutMs:  10000,
		MaxRetries: 2,
	}
}

// LoadConfig reads API configuration from environment variables, falling
// back to defaults for any unset or invalid values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("COMPARO_API_URL"); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("COMPARO_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("COMPARO_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("COMPARO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("COMPARO_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	return cfg
}

// Authenticated reports whether calls carry a bearer token.
func (c Config) Authenticated() bool {
	return c.Token != ""
}
