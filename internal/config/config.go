package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultAccessTTL          = "15m"
	defaultRefreshTTL         = "720h"
	defaultCookieSecure       = "false"
	defaultCookieSameSite     = "Lax"
	defaultCookiePath         = "/api/v1"
	defaultJWTIssuer          = "huddle"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultRefreshTokenPepper = "change-me-refresh-pepper"
	defaultWSSendBuffer       = 256
)

type Config struct {
	AppEnv             string
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	JWTIssuer          string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshTokenPepper string
	CookieSecure       bool
	CookieSameSite     string
	CookiePath         string
	WSSendBuffer       int
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", "huddle.db"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.JWTIssuer = strings.TrimSpace(getEnv("JWT_ISSUER", defaultJWTIssuer))
	cfg.RefreshTokenPepper = strings.TrimSpace(getEnv("REFRESH_TOKEN_PEPPER", defaultRefreshTokenPepper))

	var err error
	cfg.AccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.RefreshTTL, err = parseDurationEnv("REFRESH_TTL", defaultRefreshTTL)
	if err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(getEnv("COOKIE_PATH", defaultCookiePath))
	cfg.WSSendBuffer = parseIntEnv("WS_SEND_BUFFER", defaultWSSendBuffer)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	log.Printf("auth cookie config: secure=%t, sameSite=%s, path=%s", cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath)

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if cfg.JWTIssuer == "" {
		return fmt.Errorf("JWT_ISSUER must not be empty")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	if cfg.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be > 0")
	}
	sameSite := strings.ToLower(strings.TrimSpace(cfg.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenPepper, defaultRefreshTokenPepper) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_PEPPER must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseIntEnv(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
