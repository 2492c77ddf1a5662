package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Commerce platform credentials. Checkout cannot run without them, so
	// absence is fatal at startup.
	StoreID        string `env:"STORE_ID,required" validate:"required"`
	PlatformAPIKey string `env:"PLATFORM_API_KEY,required" validate:"required"`
	PlatformAPIURL string `env:"PLATFORM_API_URL" envDefault:"https://api.commercekit.io" validate:"required,url"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// Card tokenization. When unset, only tokenless methods (e.g. paypal)
	// are offered on the payment step.
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	// Confirmation email. Both must be set together.
	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" validate:"omitempty,email"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	StorefrontConfigPath string `env:"STOREFRONT_CONFIG" envDefault:""`

	BaseURL string `env:"BASE_URL" validate:"omitempty,url"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasResendKey := strings.TrimSpace(c.ResendAPIKey) != ""
	hasEmailFrom := strings.TrimSpace(c.EmailFrom) != ""
	if hasResendKey != hasEmailFrom {
		return fmt.Errorf("RESEND_API_KEY and EMAIL_FROM must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
