package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/monito/backend/internal/infrastructure/store"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("MONITO_SERVER_PORT")
		os.Unsetenv("MONITO_SERVER_ENVIRONMENT")
		os.Unsetenv("MONITO_STORE_DRIVER")
		os.Unsetenv("MONITO_STORE_DSN")
		os.Unsetenv("MONITO_CACHE_TTL")
		os.Unsetenv("MONITO_RATELIMIT_PER_IP")
		os.Unsetenv("MONITO_MATCHING_MIN_CONFIDENCE")
		os.Unsetenv("MONITO_DEALS_FRESH_WINDOW")
		os.Unsetenv("MONITO_DEALS_MIN_SAVING")
		os.Unsetenv("MONITO_LOG_FORMAT")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Store.Driver != "sqlite" {
			t.Errorf("Store.Driver = %s, want sqlite", cfg.Store.Driver)
		}
		if cfg.Store.DSN != "monito.db" {
			t.Errorf("Store.DSN = %s, want monito.db", cfg.Store.DSN)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Matching.MinConfidence != 60 {
			t.Errorf("Matching.MinConfidence = %v, want 60", cfg.Matching.MinConfidence)
		}
		if cfg.Deals.FreshWindow != 7*24*time.Hour {
			t.Errorf("Deals.FreshWindow = %v, want 168h", cfg.Deals.FreshWindow)
		}
		if cfg.Deals.MinSaving != 0.05 {
			t.Errorf("Deals.MinSaving = %v, want 0.05", cfg.Deals.MinSaving)
		}
		if cfg.Deals.MaxAlternatives != 3 {
			t.Errorf("Deals.MaxAlternatives = %d, want 3", cfg.Deals.MaxAlternatives)
		}
		if cfg.Import.HeaderRow != 1 || len(cfg.Import.PriceColumns) == 0 {
			t.Errorf("Import = %+v, want default layout", cfg.Import)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MONITO_SERVER_PORT", "9090")
		os.Setenv("MONITO_SERVER_ENVIRONMENT", "production")
		os.Setenv("MONITO_STORE_DRIVER", "postgres")
		os.Setenv("MONITO_STORE_DSN", "postgres://monito@localhost/monito")
		os.Setenv("MONITO_CACHE_TTL", "5m")
		os.Setenv("MONITO_RATELIMIT_PER_IP", "200")
		os.Setenv("MONITO_MATCHING_MIN_CONFIDENCE", "75")
		os.Setenv("MONITO_DEALS_FRESH_WINDOW", "720h")
		os.Setenv("MONITO_LOG_FORMAT", "json")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Store.Driver != "postgres" {
			t.Errorf("Store.Driver = %s, want postgres", cfg.Store.Driver)
		}
		if cfg.Store.DSN != "postgres://monito@localhost/monito" {
			t.Errorf("Store.DSN = %s, want postgres DSN", cfg.Store.DSN)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Matching.MinConfidence != 75 {
			t.Errorf("Matching.MinConfidence = %v, want 75", cfg.Matching.MinConfidence)
		}
		if cfg.Deals.FreshWindow != 720*time.Hour {
			t.Errorf("Deals.FreshWindow = %v, want 720h", cfg.Deals.FreshWindow)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("fails validation for unknown store driver", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MONITO_STORE_DRIVER", "mysql")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for unknown driver")
		}
	})

	t.Run("fails validation for saving threshold of 100%", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MONITO_DEALS_MIN_SAVING", "1")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for min_saving = 1")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

TEST_VAR_2=value2
# TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:    store.Config{Driver: "sqlite", DSN: "monito.db"},
			Matching: MatchingConfig{MinConfidence: 60},
			Deals:    DealsConfig{MinSaving: 0.05},
			Log:      LogConfig{Format: "console"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails when DSN is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Store.DSN = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty DSN")
		}
	})

	t.Run("fails for confidence above 100", func(t *testing.T) {
		cfg := valid()
		cfg.Matching.MinConfidence = 101
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for confidence 101")
		}
	})

	t.Run("fails for unknown log format", func(t *testing.T) {
		cfg := valid()
		cfg.Log.Format = "xml"
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for log format xml")
		}
	})

	t.Run("fails for negative rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Burst = -1
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for negative burst")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("json output honours level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

		logger.Info().Msg("hidden")
		logger.Warn().Str("supplier", "S1").Msg("shown")

		var entry map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
			t.Fatalf("log output %q is not a single JSON line: %v", buf.String(), err)
		}
		if entry["message"] != "shown" || entry["supplier"] != "S1" {
			t.Errorf("entry = %v, want warn entry with supplier", entry)
		}
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := NewLogger(LogConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
		if logger.GetLevel() != zerolog.InfoLevel {
			t.Errorf("level = %v, want info", logger.GetLevel())
		}
	})

	t.Run("writes rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "monito.log")
		logger := NewLogger(LogConfig{Level: "info", Format: "json", File: path}, &bytes.Buffer{})
		logger.Info().Msg("to file")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !bytes.Contains(data, []byte("to file")) {
			t.Errorf("log file = %q, want entry", data)
		}
	})
}
