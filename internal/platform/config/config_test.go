package config

import (
	"log/slog"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/staffeval",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 60,
		DefaultCurrency:    "USD",
		Environment:        "development",
	}
}

func TestParseReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/test")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("EVALUATION_REMINDER_INTERVAL", "2h")
	t.Setenv("EMAIL_ENABLED", "true")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db/test" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected rate limit 120, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.ReminderInterval != 2*time.Hour {
		t.Fatalf("expected reminder interval 2h, got %v", cfg.ReminderInterval)
	}
	if !cfg.EmailEnabled {
		t.Fatal("expected email enabled")
	}
	if cfg.Addr != ":8080" || cfg.DefaultCurrency != "USD" {
		t.Fatalf("expected defaults, got addr=%q currency=%q", cfg.Addr, cfg.DefaultCurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "small body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
		{name: "bad currency", mutate: func(c *Config) { c.DefaultCurrency = "DOLLAR" }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (Config{LogLevel: "DEBUG"}).SlogLevel(); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
	if got := (Config{LogLevel: "nonsense"}).SlogLevel(); got != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", got)
	}
}
