// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// OIDC
	OIDCIssuerURL           string
	OIDCClientID            string
	OIDCClientSecret        string
	OIDCRedirectURL         string
	OIDCDiscoveryTimeout    time.Duration
	OIDCDiscoveryMaxElapsed time.Duration

	// Session
	SessionSecret        string
	SessionMaxAge        int
	SessionSweepInterval time.Duration

	// Server
	ServerPort  string
	BaseURL     string
	FrontendURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// rawEnv は環境変数の生の値を保持する。
// AZURE_*は既存デプロイとの互換用の別名。
type rawEnv struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`

	OIDCIssuerURL     string `env:"OIDC_ISSUER_URL"`
	AzureTenantID     string `env:"AZURE_TENANT_ID"`
	OIDCClientID      string `env:"OIDC_CLIENT_ID"`
	AzureClientID     string `env:"AZURE_CLIENT_ID"`
	OIDCClientSecret  string `env:"OIDC_CLIENT_SECRET"`
	AzureClientSecret string `env:"AZURE_CLIENT_SECRET"`
	OIDCRedirectURL   string `env:"OIDC_REDIRECT_URL"`
	AzureRedirectURI  string `env:"AZURE_REDIRECT_URI"`

	OIDCDiscoveryTimeout    time.Duration `env:"OIDC_DISCOVERY_TIMEOUT" envDefault:"10s"`
	OIDCDiscoveryMaxElapsed time.Duration `env:"OIDC_DISCOVERY_MAX_ELAPSED" envDefault:"5m"`

	SessionSecret        string        `env:"SESSION_SECRET"`
	SessionMaxAge        int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	ServerPort        string `env:"SERVER_PORT" envDefault:"3000"`
	BaseURL           string `env:"BASE_URL"`
	FrontendURL       string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CookieDomain      string `env:"COOKIE_DOMAIN"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数名をまとめてエラーとして返す。
func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg := &Config{
		DatabaseURL:             raw.DatabaseURL,
		MigrateOnStart:          raw.MigrateOnStart,
		OIDCIssuerURL:           raw.OIDCIssuerURL,
		OIDCClientID:            firstSet(raw.OIDCClientID, raw.AzureClientID),
		OIDCClientSecret:        firstSet(raw.OIDCClientSecret, raw.AzureClientSecret),
		OIDCRedirectURL:         firstSet(raw.OIDCRedirectURL, raw.AzureRedirectURI),
		OIDCDiscoveryTimeout:    raw.OIDCDiscoveryTimeout,
		OIDCDiscoveryMaxElapsed: raw.OIDCDiscoveryMaxElapsed,
		SessionSecret:           raw.SessionSecret,
		SessionMaxAge:           raw.SessionMaxAge,
		SessionSweepInterval:    raw.SessionSweepInterval,
		ServerPort:              raw.ServerPort,
		BaseURL:                 raw.BaseURL,
		FrontendURL:             raw.FrontendURL,
		CookieDomain:            raw.CookieDomain,
		CORSAllowedOrigin:       firstSet(raw.CORSAllowedOrigin, raw.FrontendURL),
		LogLevel:                raw.LogLevel,
	}
	if cfg.OIDCIssuerURL == "" && raw.AzureTenantID != "" {
		cfg.OIDCIssuerURL = AzureIssuerURL(raw.AzureTenantID)
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"OIDC_ISSUER_URL or AZURE_TENANT_ID", cfg.OIDCIssuerURL},
		{"OIDC_CLIENT_ID or AZURE_CLIENT_ID", cfg.OIDCClientID},
		{"OIDC_CLIENT_SECRET or AZURE_CLIENT_SECRET", cfg.OIDCClientSecret},
		{"OIDC_REDIRECT_URL or AZURE_REDIRECT_URI", cfg.OIDCRedirectURL},
		{"SESSION_SECRET", cfg.SessionSecret},
		{"BASE_URL", cfg.BaseURL},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.SessionMaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", cfg.SessionMaxAge)
	}

	return cfg, nil
}

// AzureIssuerURL はテナントIDからMicrosoft Entra IDのv2.0発行者URLを組み立てる。
func AzureIssuerURL(tenantID string) string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", tenantID)
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
