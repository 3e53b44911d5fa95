// Package config loads wayfind configuration.
//
// Values come from three layers, later layers winning:
//   - built-in defaults, enough to run with no configuration at all
//   - an optional YAML file (--config or WAYFIND_CONFIG)
//   - WAYFIND_* environment variables, including those set by a .env file
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WAYFIND_"

// Config holds all application configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	Log         LogConfig      `yaml:"log"`
	Database    DatabaseConfig `yaml:"database"`
	Server      ServerConfig   `yaml:"server"`
	NATS        NATSConfig     `yaml:"nats"`
	Reports     ReportsConfig  `yaml:"reports"`
	Seed        SeedConfig     `yaml:"seed"`
	GTFS        GTFSConfig     `yaml:"gtfs"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CorsOrigins     []string      `yaml:"cors_origins"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NATSConfig holds NATS configuration. Publishing is off when URL is empty.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	Subject        string        `yaml:"subject"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ReportsConfig holds issue report configuration.
type ReportsConfig struct {
	Threshold int `yaml:"threshold"`
}

// SeedConfig holds seed file configuration.
type SeedConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// GTFSConfig holds transit import configuration.
type GTFSConfig struct {
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: "development",
		Log:         LogConfig{Level: "info"},
		Database:    DatabaseConfig{Path: "wayfind.db"},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CorsOrigins:     []string{"*"},
		},
		NATS: NATSConfig{
			Subject:        "wayfind.reports",
			MaxReconnects:  10,
			ReconnectWait:  time.Second,
			ConnectTimeout: 2 * time.Second,
		},
		Reports: ReportsConfig{Threshold: 3},
		GTFS: GTFSConfig{
			North: 49.292569,
			South: 49.236203,
			East:  -123.195687,
			West:  -123.285719,
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// WAYFIND_CONFIG is consulted, and with neither only defaults and the
// environment apply. A .env file in the working directory is loaded first if present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("error loading .env file", "err", err)
	}

	config := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return config, err
		}
	}

	applyEnv(&config)
	return config, config.Validate()
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("ENV", c.Environment)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.InMemory = getEnvAsBool("DB_IN_MEMORY", c.Database.InMemory)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("SERVER_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.CorsOrigins = getEnvAsSlice("SERVER_CORS_ORIGINS", c.Server.CorsOrigins)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)
	c.NATS.MaxReconnects = getEnvAsInt("NATS_MAX_RECONNECTS", c.NATS.MaxReconnects)
	c.NATS.ReconnectWait = getEnvAsDuration("NATS_RECONNECT_WAIT", c.NATS.ReconnectWait)
	c.NATS.ConnectTimeout = getEnvAsDuration("NATS_CONNECT_TIMEOUT", c.NATS.ConnectTimeout)

	c.Reports.Threshold = getEnvAsInt("REPORTS_THRESHOLD", c.Reports.Threshold)

	c.Seed.Path = getEnv("SEED_PATH", c.Seed.Path)
	c.Seed.Watch = getEnvAsBool("SEED_WATCH", c.Seed.Watch)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Reports.Threshold < 1 {
		return fmt.Errorf("%w: report threshold must be at least 1", ErrInvalidConfig)
	}
	if c.GTFS.South > c.GTFS.North || c.GTFS.West > c.GTFS.East {
		return fmt.Errorf("%w: gtfs bounds are inverted", ErrInvalidConfig)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
