package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Upstream.BaseURL != "https://api.example.test" {
		t.Fatalf("unexpected upstream base url %q", cfg.Upstream.BaseURL)
	}
	if got := cfg.Cookies.AccessTTL; got != time.Hour {
		t.Fatalf("expected access cookie ttl 1h, got %v", got)
	}
	if got := cfg.Cookies.RefreshTTL; got != 30*24*time.Hour {
		t.Fatalf("expected refresh cookie ttl 30d, got %v", got)
	}
	if cfg.Session.SigningKey != "" {
		t.Fatalf("expected no signing key by default, got %q", cfg.Session.SigningKey)
	}
	if got := cfg.Session.CacheTTL; got != 5*time.Minute {
		t.Fatalf("expected session cache ttl 5m, got %v", got)
	}
	if got := cfg.Reservations.TTL; got != 10*time.Minute {
		t.Fatalf("expected reservation ttl 10m, got %v", got)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://vendors.example.test" {
		t.Fatalf("unexpected cors origins %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without url")
	}
	if cfg.DB.NormalizedDriver() != DBDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.DB.Driver)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsNonHTTPUpstream(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPIBaseURL, "ftp://api.example.test")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http upstream to be rejected")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDBDriver, "mysql")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown db driver to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvAPIBaseURL, "https://api.example.test")
	t.Setenv(EnvReservationTTL, "10m")
	t.Setenv(EnvCORSAllowedOrigins, "http://localhost:3000,https://vendors.example.test")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}

func TestFeatureModes(t *testing.T) {
	if (CloudinaryConfig{APIKey: "key"}).Signed() {
		t.Fatal("signed uploads need both key and secret")
	}
	if !(CloudinaryConfig{APIKey: "key", APISecret: "secret"}).Signed() {
		t.Fatal("expected signed uploads with key and secret")
	}
	if got := (CloudinaryConfig{}).MaxUploadBytes(); got != 10<<20 {
		t.Fatalf("expected 10MB default, got %d", got)
	}
	if (PaystackConfig{}).Direct() {
		t.Fatal("gateway should be proxied without a secret key")
	}
	if (DBConfig{Driver: "PostgreSQL"}).NormalizedDriver() != DBDriverPostgres {
		t.Fatal("expected postgres alias to normalize")
	}
}
