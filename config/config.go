/*
Package config loads service configuration from the environment.

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory, if present
  3. Process environment
  4. Command-line flags, applied by cmd/server

VARIABLES:
  PORT             HTTP port                              8080
  DB_PATH          SQLite path, ":memory:" allowed        funding.db
  LOG_LEVEL        DEBUG, INFO, WARN, ERROR               INFO
  CALC_WORKERS     parallel licence-detail workers        4
  ALLOWED_ORIGINS  comma-separated CORS origins           localhost dev servers
  REQUEST_TIMEOUT  per-request deadline (Go duration)     30s
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved service configuration.
type Config struct {
	Port           int
	DBPath         string
	LogLevel       string
	CalcWorkers    int
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:           8080,
		DBPath:         "funding.db",
		LogLevel:       "INFO",
		CalcWorkers:    4,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		RequestTimeout: 30 * time.Second,
	}
}

// Load reads .env (a missing file is fine) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, starting from Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("CALC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("invalid CALC_WORKERS %q: must be a positive integer", v)
		}
		cfg.CalcWorkers = n
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT %q", v)
		}
		cfg.RequestTimeout = d
	}
	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
