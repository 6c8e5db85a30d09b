package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr                    string        `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL             string        `env:"DATABASE_URL"`
	JWTSecret               string        `env:"JWT_SECRET"`
	DataEncryptionKey       string        `env:"DATA_ENCRYPTION_KEY"`
	FrontendDir             string        `env:"FRONTEND_DIR" envDefault:"frontend/dist"`
	MigrationsDir           string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	Environment             string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	BaseURL                 string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	SeedTenantName          string        `env:"SEED_TENANT_NAME" envDefault:"Default Tenant"`
	SeedAdminEmail          string        `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword       string        `env:"SEED_ADMIN_PASSWORD"`
	SeedSystemAdminEmail    string        `env:"SEED_SYSTEM_ADMIN_EMAIL"`
	SeedSystemAdminPassword string        `env:"SEED_SYSTEM_ADMIN_PASSWORD"`
	DefaultCurrency         string        `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	EmailFrom               string        `env:"EMAIL_FROM" envDefault:"no-reply@example.com"`
	EmailEnabled            bool          `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost                string        `env:"SMTP_HOST"`
	SMTPPort                int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser                string        `env:"SMTP_USER"`
	SMTPPassword            string        `env:"SMTP_PASSWORD"`
	SMTPUseTLS              bool          `env:"SMTP_USE_TLS" envDefault:"true"`
	RunMigrations           bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed                 bool          `env:"RUN_SEED" envDefault:"true"`
	MaxBodyBytes            int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitPerMinute      int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	ReminderInterval        time.Duration `env:"EVALUATION_REMINDER_INTERVAL" envDefault:"24h"`
	MetricsEnabled          bool          `env:"METRICS_ENABLED" envDefault:"true"`
	OTelEndpoint            string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName         string        `env:"OTEL_SERVICE_NAME" envDefault:"staffeval"`
}

// Load reads the configuration from the environment. Malformed values are
// logged and replaced by their defaults.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		slog.Warn("config parse failed, using defaults", "err", err)
		cfg, _ = env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	}
	return cfg
}

func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if len(strings.TrimSpace(c.DefaultCurrency)) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a three letter ISO 4217 code")
	}
	return nil
}
