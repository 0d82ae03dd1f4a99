package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	CatalogPath    string   `mapstructure:"CATALOG_PATH"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string   `mapstructure:"REDIS_URL"`
	MasterAPIKey   string   `mapstructure:"MASTER_API_KEY"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	AuthDisabled   bool     `mapstructure:"AUTH_DISABLED"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	WebhookURL        string `mapstructure:"HEALTHFLOW_WEBHOOK_URL"`
	WebhookSecret     string `mapstructure:"HEALTHFLOW_WEBHOOK_SECRET"`
	WebhookMaxRetries int    `mapstructure:"WEBHOOK_MAX_RETRIES"`
	WebhookRetryDelay int    `mapstructure:"WEBHOOK_RETRY_DELAY_SECONDS"`
	WebhookTimeout    int    `mapstructure:"WEBHOOK_TIMEOUT_SECONDS"`

	HealthFlowBaseURL string `mapstructure:"HEALTHFLOW_BASE_URL"`
	HealthFlowAPIKey  string `mapstructure:"HEALTHFLOW_API_KEY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("WEBHOOK_MAX_RETRIES", 3)
	v.SetDefault("WEBHOOK_RETRY_DELAY_SECONDS", 60)
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 30)
	v.SetDefault("HEALTHFLOW_WEBHOOK_SECRET", "healthflow-webhook-secret-2026")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("CATALOG_PATH")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("MASTER_API_KEY")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("AUTH_DISABLED")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("HEALTHFLOW_WEBHOOK_URL")
	v.BindEnv("HEALTHFLOW_WEBHOOK_SECRET")
	v.BindEnv("WEBHOOK_MAX_RETRIES")
	v.BindEnv("WEBHOOK_RETRY_DELAY_SECONDS")
	v.BindEnv("WEBHOOK_TIMEOUT_SECONDS")
	v.BindEnv("HEALTHFLOW_BASE_URL")
	v.BindEnv("HEALTHFLOW_API_KEY")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasDatabase reports whether an audit database is configured. The validation
// engine itself runs entirely in memory; DATABASE_URL only enables the
// persistent audit trail.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasRedis reports whether webhook subscriptions should be stored in Redis
// instead of process memory.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// Validate checks that the configuration is safe to run. Outside development,
// authentication must be configured: either an explicit MASTER_API_KEY or
// AUTH_DISABLED set on purpose.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.AuthDisabled {
			return fmt.Errorf("AUTH_DISABLED must not be set in production")
		}
		if c.MasterAPIKey == "" {
			return fmt.Errorf("MASTER_API_KEY is required in production")
		}
		if len(c.MasterAPIKey) < 16 {
			return fmt.Errorf("MASTER_API_KEY must be at least 16 characters, got %d", len(c.MasterAPIKey))
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}
	if c.WebhookMaxRetries < 1 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES must be at least 1, got %d", c.WebhookMaxRetries)
	}
	if c.WebhookRetryDelay < 0 {
		return fmt.Errorf("WEBHOOK_RETRY_DELAY_SECONDS must not be negative, got %d", c.WebhookRetryDelay)
	}
	if c.WebhookTimeout < 1 {
		return fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be at least 1, got %d", c.WebhookTimeout)
	}
	return nil
}
