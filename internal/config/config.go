// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env      string `env:"EWM_ENV" envDefault:"development"`
	Port     int    `env:"EWM_PORT" envDefault:"8080"`
	LogLevel string `env:"EWM_LOG_LEVEL" envDefault:"info"`
	Store    string `env:"EWM_STORE" envDefault:"postgres"`

	DB    DB    `envPrefix:"EWM_DB_"`
	Stats Stats `envPrefix:"EWM_STATS_"`

	// Seeding is only used by the in-memory store, which has no user or
	// category management of its own.
	SeedUsers      int `env:"EWM_SEED_USERS" envDefault:"10"`
	SeedCategories int `env:"EWM_SEED_CATEGORIES" envDefault:"3"`
}

// DB holds PostgreSQL connection settings.
type DB struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER" envDefault:"postgres"`
	Password        string        `env:"PASSWORD" envDefault:"postgres"`
	Name            string        `env:"NAME" envDefault:"ewm"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"5m"`
	ConnectAttempts int           `env:"CONNECT_ATTEMPTS" envDefault:"5"`
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Stats configures the view counting integration.
type Stats struct {
	URL       string        `env:"URL"`
	App       string        `env:"APP" envDefault:"ewm-main-service"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"2s"`
	Lookback  time.Duration `env:"LOOKBACK" envDefault:"8760h"`
	CacheSize int           `env:"CACHE_SIZE" envDefault:"10000"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"10m"`
}

// Enabled reports whether a stats server is configured.
func (s Stats) Enabled() bool {
	return s.URL != ""
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address.
func (c Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("EWM_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.Stats.Timeout <= 0 {
		return nil, fmt.Errorf("EWM_STATS_TIMEOUT must be positive, got %s", cfg.Stats.Timeout)
	}
	if cfg.Stats.CacheSize < 0 {
		return nil, fmt.Errorf("EWM_STATS_CACHE_SIZE cannot be negative")
	}
	return cfg, nil
}
