package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/monito/backend/internal/infrastructure/pricelist"
	"github.com/monito/backend/internal/infrastructure/store"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     store.Config
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Matching  MatchingConfig
	Deals     DealsConfig
	Log       LogConfig
	Import    pricelist.Layout
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds alias cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// MatchingConfig holds matching engine configuration
type MatchingConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	Workers       int     `mapstructure:"workers"`
}

// DealsConfig holds better-deal filtering configuration
type DealsConfig struct {
	FreshWindow     time.Duration `mapstructure:"fresh_window"`
	MinSaving       float64       `mapstructure:"min_saving"`
	MaxAlternatives int           `mapstructure:"max_alternatives"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
	File   string `mapstructure:"file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/monito/")

	// MONITO_STORE_DSN -> store.dsn
	v.SetEnvPrefix("MONITO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports KEY=value pairs from ./.env without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "monito.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("matching.min_confidence", 60)
	v.SetDefault("matching.workers", 8)

	v.SetDefault("deals.fresh_window", "168h")
	v.SetDefault("deals.min_saving", 0.05)
	v.SetDefault("deals.max_alternatives", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	layout := pricelist.DefaultLayout()
	v.SetDefault("import.header_row", layout.HeaderRow)
	v.SetDefault("import.name_columns", layout.NameColumns)
	v.SetDefault("import.price_columns", layout.PriceColumns)
	v.SetDefault("import.unit_columns", layout.UnitColumns)
	v.SetDefault("import.quantity_columns", layout.QuantityColumns)
	v.SetDefault("import.default_unit", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Store.Driver != store.DriverSQLite && config.Store.Driver != store.DriverPostgres {
		return fmt.Errorf("store driver must be 'sqlite' or 'postgres', got: %s", config.Store.Driver)
	}

	if config.Store.DSN == "" {
		return fmt.Errorf("store DSN is required (set MONITO_STORE_DSN)")
	}

	if config.Matching.MinConfidence < 0 || config.Matching.MinConfidence > 100 {
		return fmt.Errorf("matching min_confidence must be within 0..100, got: %v", config.Matching.MinConfidence)
	}

	if config.Deals.MinSaving < 0 || config.Deals.MinSaving >= 1 {
		return fmt.Errorf("deals min_saving must be a fraction below 1, got: %v", config.Deals.MinSaving)
	}

	if config.RateLimit.PerIP < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", config.Log.Format)
	}

	return nil
}
