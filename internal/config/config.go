// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by PersistenceConfig.Backend.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	Persistence PersistenceConfig
	Rooms       RoomsConfig
	Transport   TransportConfig
	Search      SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk locations.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 3001)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	MaxConnections int           // Concurrent connection cap, 0 means unlimited
	CORSOrigins    []string      // Allowed origins (default: *)
}

// PersistenceConfig controls the durable room store and the flush schedule.
type PersistenceConfig struct {
	Backend        string
	DatabaseURL    string // Postgres DSN, required when Backend is postgres
	Interval       time.Duration
	SaveOnShutdown bool
	Concurrency    int
}

// RoomsConfig holds room defaults.
type RoomsConfig struct {
	DefaultRoom    string
	PopularLimit   int
	MaxBatchPixels int
}

// TransportConfig tunes the websocket connections.
type TransportConfig struct {
	PingInterval    time.Duration
	MaxMessageBytes int64
	SendBuffer      int
}

// SearchConfig toggles the room directory index.
type SearchConfig struct {
	Enabled bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

//nolint:funlen // Flat list of settings reads better than splitting it up.
func load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pixelworld", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for room data")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 3001)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	maxConnections := fs.String("max-connections", "", "Maximum concurrent connections (default: unlimited)")
	corsOrigin := fs.String("cors-origin", "", "Comma-separated allowed origins (default: *)")

	storage := fs.String("storage", "", "Storage backend: badger, sqlite, postgres (default: badger)")
	databaseURL := fs.String("database-url", "", "PostgreSQL connection string")
	saveInterval := fs.String("save-interval", "", "Room flush interval (default: 15s)")
	saveOnShutdown := fs.String("save-on-shutdown", "", "Flush rooms on shutdown (default: true)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine; godotenv never overrides variables already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "3001"),
			MaxConnections: getIntConfigValue(*maxConnections, "SERVER_MAX_CONNECTIONS", 0),
			CORSOrigins:    splitList(getConfigValue(*corsOrigin, "CORS_ORIGIN", "*")),
		},
		Persistence: PersistenceConfig{
			Backend:        strings.ToLower(getConfigValue(*storage, "STORAGE_BACKEND", BackendBadger)),
			DatabaseURL:    getConfigValue(*databaseURL, "DATABASE_URL", ""),
			SaveOnShutdown: getBoolConfigValue(*saveOnShutdown, "SAVE_ON_SHUTDOWN", true),
			Concurrency:    getIntConfigValue("", "SAVE_CONCURRENCY", 4),
		},
		Rooms: RoomsConfig{
			DefaultRoom:    getConfigValue("", "DEFAULT_ROOM", "main"),
			PopularLimit:   getIntConfigValue("", "POPULAR_ROOMS", 6),
			MaxBatchPixels: getIntConfigValue("", "MAX_BATCH_PIXELS", 4096),
		},
		Transport: TransportConfig{
			MaxMessageBytes: int64(getIntConfigValue("", "WS_MAX_MESSAGE_BYTES", 1<<20)),
			SendBuffer:      getIntConfigValue("", "WS_SEND_BUFFER", 256),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue("", "SEARCH_ENABLED", true),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Persistence.Interval, *saveInterval, "SAVE_INTERVAL", "15s"},
		{&cfg.Transport.PingInterval, "", "WS_PING_INTERVAL", "25s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := parseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Persistence.Backend {
	case BackendBadger, BackendSQLite:
	case BackendPostgres:
		if c.Persistence.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be badger, sqlite, or postgres)", c.Persistence.Backend)
	}

	if c.Persistence.Interval <= 0 {
		return fmt.Errorf("save interval must be positive, got %s", c.Persistence.Interval)
	}
	if c.Persistence.Concurrency < 1 {
		return fmt.Errorf("save concurrency must be at least 1, got %d", c.Persistence.Concurrency)
	}
	if c.Rooms.DefaultRoom == "" {
		return errors.New("default room cannot be empty")
	}
	if c.Rooms.PopularLimit < 1 {
		return fmt.Errorf("popular room count must be at least 1, got %d", c.Rooms.PopularLimit)
	}
	if c.Rooms.MaxBatchPixels < 1 {
		return fmt.Errorf("max batch pixels must be at least 1, got %d", c.Rooms.MaxBatchPixels)
	}
	if c.Transport.SendBuffer < 1 {
		return fmt.Errorf("websocket send buffer must be at least 1, got %d", c.Transport.SendBuffer)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max connections cannot be negative, got %d", c.Server.MaxConnections)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "PixelWorld", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// parseDuration reads a bare integer as seconds and anything else with
// time.ParseDuration.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
