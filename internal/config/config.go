// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server and CLI read from the environment.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Generator GeneratorConfig

	DBPath          string        `env:"METRO_DB_PATH" envDefault:"data/metro.db"`
	AdminKey        string        `env:"METRO_ADMIN_KEY"`
	RandomOrgKey    string        `env:"RANDOM_ORG_API_KEY"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"512"`
}

type ServerConfig struct {
	Port         string        `env:"METRO_PORT" envDefault:"8080"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout  time.Duration `env:"METRO_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"METRO_WRITE_TIMEOUT" envDefault:"60s"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"auto"`
}

type RateLimitConfig struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst   int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	URL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// GeneratorConfig supplies defaults for runs that omit a parameter.
type GeneratorConfig struct {
	DefaultSeed uint32 `env:"METRO_DEFAULT_SEED" envDefault:"2944957927"`
	YearStep    int    `env:"METRO_YEAR_STEP" envDefault:"50"`
	TotalYears  int    `env:"METRO_TOTAL_YEARS" envDefault:"1500"`
	Workers     int    `env:"METRO_WORKERS" envDefault:"0"`
	ErasFile    string `env:"METRO_ERAS_FILE"`
}

// Load reads .env if present, parses the environment and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be auto, text or json", c.Logging.Format))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("METRO_PORT is required"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1"))
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required when REDIS_ENABLED is set"))
	}
	if c.Generator.YearStep < 1 {
		errs = append(errs, errors.New("METRO_YEAR_STEP must be at least 1"))
	}
	if c.Generator.TotalYears < 0 {
		errs = append(errs, errors.New("METRO_TOTAL_YEARS must not be negative"))
	}
	if c.Generator.Workers < 0 {
		errs = append(errs, errors.New("METRO_WORKERS must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
