// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Telemetry exporters accepted in OTEL_EXPORTER.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlphttp"
	ExporterOTLPGRPC = "otlpgrpc"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL          string
	HTTPAddr             string
	BaseURL              string
	LogLevel             string
	LogFormat            string
	LogHashSalt          string
	SessionTTL           time.Duration
	DashboardIdleTimeout time.Duration
	StrictCategories     bool
	CookieSecure         bool
	Location             *time.Location
	GoogleClientID       string
	GoogleClientSecret   string
	GeminiAPIKey         string
	GeminiModel          string
	OTelExporter         string
	OTelEndpoint         string
	ServiceName          string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		BaseURL:            strings.TrimRight(envOr("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
		LogHashSalt:        os.Getenv("LOG_HASH_SALT"),
		StrictCategories:   os.Getenv("STRICT_CATEGORIES") == "true",
		CookieSecure:       os.Getenv("COOKIE_SECURE") == "true",
		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		OTelExporter:       strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:        envOr("OTEL_SERVICE_NAME", "trackify"),
	}

	var errs []string

	cfg.SessionTTL = 14 * 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("SESSION_TTL %q is not a positive duration", v))
		} else {
			cfg.SessionTTL = d
		}
	}

	cfg.DashboardIdleTimeout = 30 * time.Minute
	if v := os.Getenv("DASHBOARD_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("DASHBOARD_IDLE_TIMEOUT %q is not a positive duration", v))
		} else {
			cfg.DashboardIdleTimeout = d
		}
	}

	cfg.Location = time.UTC
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Sprintf("TIMEZONE %q is not a known location", tz))
		} else {
			cfg.Location = loc
		}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks cross-field constraints.
func (c *Config) validate() []string {
	var errs []string

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "BASE_URL must be an absolute URL")
	}

	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		errs = append(errs, "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLPHTTP, ExporterOTLPGRPC:
		if c.OTelEndpoint == "" {
			errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required for OTLP exporters")
		}
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlphttp, otlpgrpc", c.OTelExporter))
	}

	return errs
}

// InMemory reports whether the app runs without a database.
func (c *Config) InMemory() bool {
	return c.DatabaseURL == ""
}

// GoogleEnabled reports whether federated sign-in with Google is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// GoogleRedirectURL is the OAuth callback registered with Google.
func (c *Config) GoogleRedirectURL() string {
	return c.BaseURL + "/auth/google/callback"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
