package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	DBMigrate    bool
	CookieSecret string
	SessionTTL   time.Duration
	LogLevel     string

	AvatarDir       string
	PhoneCodeSecret string

	GoogleWebClientID string
	AppleServiceID    string

	SMSGatewayURL   string
	SMSGatewayToken string
	SMSFrom         string

	AdminBootstrapEmail    string
	AdminBootstrapUsername string
	AdminBootstrapPassword string
}

func Load() (Config, error) {
	// .env is optional; real env always wins.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:          getenv("APP_ENV"),
		Addr:         getenv("APP_ADDR"),
		DBDSN:        getenv("APP_DB_DSN"),
		LogLevel:     getenv("APP_LOG_LEVEL"),
		CookieSecret: getenv("APP_COOKIE_SECRET"),

		AvatarDir:       getenv("APP_AVATAR_DIR"),
		PhoneCodeSecret: getenv("APP_PHONE_CODE_SECRET"),

		GoogleWebClientID: strings.TrimSpace(getenv("APP_GOOGLE_WEB_CLIENT_ID")),
		AppleServiceID:    strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),

		SMSGatewayURL:   strings.TrimSpace(getenv("APP_SMS_GATEWAY_URL")),
		SMSGatewayToken: getenv("APP_SMS_GATEWAY_TOKEN"),
		SMSFrom:         strings.TrimSpace(getenv("APP_SMS_FROM")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.AvatarDir == "" {
		cfg.AvatarDir = "content/images"
	}

	switch getenv("APP_DB_MIGRATE") {
	case "", "0", "false":
	case "1", "true":
		cfg.DBMigrate = true
	default:
		return Config{}, errors.New("APP_DB_MIGRATE: must be 0 or 1")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 30 * 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapUsername = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_USERNAME"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapUsername == "" {
		cfg.AdminBootstrapUsername = "admin"
	}

	if cfg.SMSGatewayURL != "" {
		parsed, err := url.Parse(cfg.SMSGatewayURL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_SMS_GATEWAY_URL: must be an absolute URL")
		}
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
		if len(cfg.PhoneCodeSecret) < 32 {
			return Config{}, errors.New("APP_PHONE_CODE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// ExternalProviders lists the configured external login providers, in
// display order.
func (c Config) ExternalProviders() []string {
	var out []string
	if c.GoogleWebClientID != "" {
		out = append(out, "google")
	}
	if c.AppleServiceID != "" {
		out = append(out, "apple")
	}
	return out
}
