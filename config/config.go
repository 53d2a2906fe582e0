package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	PayPal   PayPalConfig
	Tap      TapConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicBaseURL is this service's externally reachable base URL; the
	// redirect provider sends the user back to PublicBaseURL + /payment/return.
	PublicBaseURL string
	// Storefront destinations for terminal outcomes, plus the interstitial
	// the user waits on while verification polls.
	SuccessURL    string
	FailureURL    string
	ProcessingURL string
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

// PayPalConfig for the redirect-based provider (OAuth2 client credentials).
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
}

// TapConfig for the in-page dialog provider (API-key charges).
type TapConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
}

// CheckoutConfig carries the orchestration knobs.
type CheckoutConfig struct {
	GatewayInitTimeout time.Duration // ceiling on a provider handshake
	MaxRetryAttempts   int           // failed attempts before a provider is disabled
	MaxPolls           int           // verification polls before TIMEOUT
	PollInterval       time.Duration // delay between verification polls
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          env("PORT", "8088"),
			Env:           env("APP_ENV", "development"),
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			PublicBaseURL: env("PUBLIC_BASE_URL", "http://localhost:8088"),
			SuccessURL:    env("CHECKOUT_SUCCESS_URL", "https://jojoprompts.com/payment-success"),
			FailureURL:    env("CHECKOUT_FAILURE_URL", "https://jojoprompts.com/payment-failed"),
			ProcessingURL: env("CHECKOUT_PROCESSING_URL", "https://jojoprompts.com/payment-processing"),
		},
		Database: DatabaseConfig{
			DSN:             env("DB_DSN", "jojoprompts:jojoprompts@tcp(localhost:3306)/jojoprompts?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: env("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       "jojoprompts",
		},
		PayPal: PayPalConfig{
			BaseURL:      env("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     env("PAYPAL_CLIENT_ID", ""),
			ClientSecret: env("PAYPAL_CLIENT_SECRET", ""),
			Currency:     env("PAYPAL_CURRENCY", "USD"),
		},
		Tap: TapConfig{
			BaseURL:   env("TAP_BASE_URL", "https://api.tap.company/v2"),
			SecretKey: env("TAP_SECRET_KEY", ""),
			Currency:  env("TAP_CURRENCY", "USD"),
		},
		Checkout: CheckoutConfig{
			GatewayInitTimeout: envDuration("CHECKOUT_GATEWAY_INIT_TIMEOUT", 30*time.Second),
			MaxRetryAttempts:   envInt("CHECKOUT_MAX_RETRY_ATTEMPTS", 3),
			MaxPolls:           envInt("CHECKOUT_MAX_POLLS", 30),
			PollInterval:       envDuration("CHECKOUT_POLL_INTERVAL", 2*time.Second),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
