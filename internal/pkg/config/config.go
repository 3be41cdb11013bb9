package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ManuelReschke/TherapyGames/internal/pkg/env"
	"github.com/go-playground/validator/v10"
)

// Config is the typed process configuration assembled from the environment.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Billing  BillingConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Env  string `validate:"oneof=dev prod test"`
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

type DatabaseConfig struct {
	User     string `validate:"required"`
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
}

type CacheConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
	PlanTTL  time.Duration `validate:"gt=0"`
}

// BillingConfig carries the webhook settings. SigningSecret may be empty; the
// webhook then answers 500 instead of blocking startup.
type BillingConfig struct {
	SigningSecret  string
	GatewayTimeout time.Duration `validate:"gt=0"`
	RateLimit      int           `validate:"min=1"`
}

// MetricsConfig guards /metrics. Without a user the endpoint is not mounted.
type MetricsConfig struct {
	User         string
	PasswordHash string `validate:"required_with=User"`
}

// Load reads the configuration from env (see env.SetupEnvFile) and validates it.
func Load() (*Config, error) {
	gatewayTimeout, err := durationFromEnv("BILLING_GATEWAY_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	planTTL, err := durationFromEnv("CACHE_PLAN_TTL", "5m")
	if err != nil {
		return nil, err
	}
	rateLimit, err := strconv.Atoi(env.GetEnv("BILLING_WEBHOOK_RATE_LIMIT", "120"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_WEBHOOK_RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:  env.GetEnv("APP_ENV", "prod"),
			Host: env.GetEnv("APP_HOST", "localhost"),
			Port: env.GetEnv("APP_PORT", "4000"),
		},
		Database: DatabaseConfig{
			User:     env.GetEnv("DB_USER", "therapygames"),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			Name:     env.GetEnv("DB_NAME", "therapygames_db"),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			PlanTTL:  planTTL,
		},
		Billing: BillingConfig{
			SigningSecret:  env.GetEnv("BILLING_WEBHOOK_SECRET", ""),
			GatewayTimeout: gatewayTimeout,
			RateLimit:      rateLimit,
		},
		Metrics: MetricsConfig{
			User:         env.GetEnv("METRICS_USER", ""),
			PasswordHash: env.GetEnv("METRICS_PASSWORD_HASH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// DSN is the GORM MySQL data source name. clientFoundRows makes an update
// that rewrites identical values still report the row as affected.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL is the golang-migrate database URL.
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func durationFromEnv(key, def string) (time.Duration, error) {
	raw := env.GetEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
