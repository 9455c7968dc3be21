// Package config loads application configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	Sampler   SamplerConfig  `koanf:"sampler"`
	Log       LogConfig      `koanf:"log"`
	AppNumber string         `koanf:"app_number"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RateLimitRPS      float64       `koanf:"rate_limit_rps"`
	RateLimitBurst    int           `koanf:"rate_limit_burst"`
}

// DatabaseConfig contains record store configuration.
type DatabaseConfig struct {
	URI             string        `koanf:"uri"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectDelay    time.Duration `koanf:"connect_delay"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// SamplerConfig contains system sampler configuration.
type SamplerConfig struct {
	Interval      time.Duration `koanf:"interval"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	DiskPath      string        `koanf:"disk_path"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "5000",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 280 * time.Second,
			ConnectAttempts: 5,
			ConnectDelay:    5 * time.Second,
			ConnectTimeout:  60 * time.Second,
		},
		Sampler: SamplerConfig{
			Interval:      5 * time.Second,
			RetryInterval: 1 * time.Second,
			DiskPath:      "/",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		AppNumber: "1",
	}
}

// envKeys maps the recognized environment variables onto config paths.
// Everything else in the environment is ignored.
var envKeys = map[string]string{
	"DB_URI":              "database.uri",
	"DB_MAX_OPEN_CONNS":   "database.max_open_conns",
	"DB_MAX_IDLE_CONNS":   "database.max_idle_conns",
	"DB_CONNECT_ATTEMPTS": "database.connect_attempts",
	"DB_CONNECT_DELAY":    "database.connect_delay",
	"DB_CONNECT_TIMEOUT":  "database.connect_timeout",
	"APP_NUMBER":          "app_number",
	"SERVER_HOST":         "server.host",
	"SERVER_PORT":         "server.port",
	"RATE_LIMIT_RPS":      "server.rate_limit_rps",
	"RATE_LIMIT_BURST":    "server.rate_limit_burst",
	"SAMPLER_INTERVAL":    "sampler.interval",
	"SAMPLER_DISK_PATH":   "sampler.disk_path",
	"LOG_LEVEL":           "log.level",
	"LOG_FORMAT":          "log.format",
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if mapped, ok := envKeys[key]; ok {
				return mapped, value
			}
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.URI == "" {
		return nil, errors.New("database uri is required (set DB_URI)")
	}

	return cfg, nil
}
