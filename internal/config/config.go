// Package config loads notification-hub configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Serial / pipe transport. SerialPort and PipePath are mutually
	// exclusive; an empty string disables that transport entirely.
	SerialPort string
	SerialBaud int
	PipePath   string

	// Inbound WebSocket pub/sub server.
	WSListenAddr string

	// Outbound WebSocket client adapters, one per URL.
	WSClientURLs []string

	// NATS bridge adapter. Empty disables it.
	NATSURL string

	// HTTP admin surface (health, list-channels, publish).
	AdminAddr string

	// App
	Environment string // development, staging, production
	LogLevel    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		SerialPort:   getEnv("SERIAL_PORT", ""),
		SerialBaud:   getEnvInt("SERIAL_BAUD", 9600),
		PipePath:     getEnv("PIPE_PATH", ""),
		WSListenAddr: getEnv("WS_LISTEN_ADDR", ":7070"),
		WSClientURLs: getEnvList("WS_CLIENT_URLS"),
		NATSURL:      getEnv("NATS_URL", ""),
		AdminAddr:    getEnv("ADMIN_ADDR", ":8090"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SerialPort != "" && c.PipePath != "" {
		return fmt.Errorf("SERIAL_PORT and PIPE_PATH are mutually exclusive")
	}
	if c.WSListenAddr == "" {
		return fmt.Errorf("WS_LISTEN_ADDR is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable into a
// trimmed, non-empty slice. Returns nil if the variable is unset or
// empty.
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
