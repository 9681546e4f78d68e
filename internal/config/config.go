package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL,required" validate:"required,url"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml" validate:"required"`

	MonobankToken  string `env:"MONOBANK_TOKEN"`
	MonobankAPIURL string `env:"MONOBANK_API_URL" envDefault:"https://api.monobank.ua" validate:"required,url"`

	WayForPayMerchantAccount string `env:"WAYFORPAY_MERCHANT_ACCOUNT"`
	WayForPayMerchantDomain  string `env:"WAYFORPAY_MERCHANT_DOMAIN"`
	WayForPaySecretKey       string `env:"WAYFORPAY_SECRET_KEY"`
	WayForPayAPIURL          string `env:"WAYFORPAY_API_URL" envDefault:"https://api.wayforpay.com/api" validate:"required,url"`

	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"resend" validate:"omitempty,oneof=resend mailgun"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	MailgunAPIKey string `env:"MAILGUN_API_KEY"`
	MailgunDomain string `env:"MAILGUN_DOMAIN"`

	AdminPassword string `env:"ADMIN_PASSWORD,required" validate:"required,min=8"`

	// AckUnknownOrders controls what happens when a webhook references an
	// order this system does not track: acknowledge with a loud log (true),
	// or answer 404 so the gateway keeps retrying (false).
	AckUnknownOrders bool `env:"ACK_UNKNOWN_ORDERS" envDefault:"true"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	SentryDSN string     `env:"SENTRY_DSN"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
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

	if !c.MonobankEnabled() && !c.WayForPayEnabled() {
		return fmt.Errorf("at least one payment gateway must be configured (MONOBANK_TOKEN or WAYFORPAY_*)")
	}

	hasAccount := strings.TrimSpace(c.WayForPayMerchantAccount) != ""
	hasDomain := strings.TrimSpace(c.WayForPayMerchantDomain) != ""
	hasSecret := strings.TrimSpace(c.WayForPaySecretKey) != ""
	if hasAccount != hasSecret || hasAccount != hasDomain {
		return fmt.Errorf("WAYFORPAY_MERCHANT_ACCOUNT, WAYFORPAY_MERCHANT_DOMAIN and WAYFORPAY_SECRET_KEY must be set together")
	}

	switch c.EmailProvider {
	case "resend":
		if strings.TrimSpace(c.ResendAPIKey) != "" && strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
		}
	case "mailgun":
		if strings.TrimSpace(c.MailgunAPIKey) != "" && (strings.TrimSpace(c.MailgunDomain) == "" || strings.TrimSpace(c.EmailFrom) == "") {
			return fmt.Errorf("MAILGUN_DOMAIN and EMAIL_FROM are required when MAILGUN_API_KEY is set")
		}
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	return nil
}

func (c *Config) MonobankEnabled() bool {
	return strings.TrimSpace(c.MonobankToken) != ""
}

func (c *Config) WayForPayEnabled() bool {
	return strings.TrimSpace(c.WayForPayMerchantAccount) != "" &&
		strings.TrimSpace(c.WayForPayMerchantDomain) != "" &&
		strings.TrimSpace(c.WayForPaySecretKey) != ""
}

// EmailEnabled reports whether an outbound email channel is configured.
// Without one, confirmation emails are skipped (they are best-effort anyway).
func (c *Config) EmailEnabled() bool {
	switch c.EmailProvider {
	case "mailgun":
		return strings.TrimSpace(c.MailgunAPIKey) != ""
	default:
		return strings.TrimSpace(c.ResendAPIKey) != ""
	}
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
