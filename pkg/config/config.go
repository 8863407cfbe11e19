package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Upstream     UpstreamConfig
	Cookies      CookieConfig
	Session      SessionConfig
	DB           DBConfig
	Redis        RedisConfig
	Cloudinary   CloudinaryConfig
	Paystack     PaystackConfig
	RateLimit    RateLimitConfig
	Reservations ReservationConfig
	Cache        CacheConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORPORTAL_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORPORTAL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VENDORPORTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORPORTAL_LOG_WARN_STACK" default:"false"`
	// ShutdownTimeout bounds graceful drain of in-flight requests.
	ShutdownTimeout time.Duration `envconfig:"VENDORPORTAL_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "prod")
}

type UpstreamConfig struct {
	BaseURL      string        `envconfig:"VENDORPORTAL_API_BASE_URL" required:"true"`
	Timeout      time.Duration `envconfig:"VENDORPORTAL_API_TIMEOUT" default:"15s"`
	MaxBodyBytes int64         `envconfig:"VENDORPORTAL_API_MAX_BODY_BYTES" default:"5242880"`
}

func (u UpstreamConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(u.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	return nil
}

type CookieConfig struct {
	Domain     string        `envconfig:"VENDORPORTAL_COOKIE_DOMAIN"`
	AccessTTL  time.Duration `envconfig:"VENDORPORTAL_ACCESS_COOKIE_TTL" default:"1h"`
	RefreshTTL time.Duration `envconfig:"VENDORPORTAL_REFRESH_COOKIE_TTL" default:"720h"`
	// ForceSecure marks cookies Secure outside production, e.g. behind a TLS dev proxy.
	ForceSecure bool `envconfig:"VENDORPORTAL_COOKIE_FORCE_SECURE" default:"false"`
}

// SessionConfig controls how the portal confirms which vendor a token belongs to.
// With a signing key the token is verified locally; without one the backend's
// /api/vendors/me answer is trusted and cached for CacheTTL.
type SessionConfig struct {
	SigningKey string        `envconfig:"VENDORPORTAL_ACCESS_TOKEN_SECRET"`
	CacheTTL   time.Duration `envconfig:"VENDORPORTAL_SESSION_CACHE_TTL" default:"5m"`
}

type DBConfig struct {
	Driver string `envconfig:"VENDORPORTAL_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"VENDORPORTAL_DB_DSN" default:"file:vendorportal.db?_busy_timeout=5000"`

	MaxOpenConns    int           `envconfig:"VENDORPORTAL_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"VENDORPORTAL_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORPORTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORPORTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.NormalizedDriver() {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDBDriver, DBDriverSQLite, DBDriverPostgres)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

// NormalizedDriver lowercases the driver and folds postgres aliases.
func (db DBConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "postgresql" || driver == "pg" {
		return DBDriverPostgres
	}
	return driver
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORPORTAL_REDIS_URL"`
	Address      string        `envconfig:"VENDORPORTAL_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORPORTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORPORTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORPORTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORPORTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORPORTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORPORTAL_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"VENDORPORTAL_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CloudinaryConfig struct {
	CloudName    string `envconfig:"VENDORPORTAL_CLOUDINARY_CLOUD_NAME"`
	APIKey       string `envconfig:"VENDORPORTAL_CLOUDINARY_API_KEY"`
	APISecret    string `envconfig:"VENDORPORTAL_CLOUDINARY_API_SECRET"`
	UploadPreset string `envconfig:"VENDORPORTAL_CLOUDINARY_UPLOAD_PRESET"`
	Folder       string `envconfig:"VENDORPORTAL_CLOUDINARY_FOLDER" default:"vendors"`
	BaseURL      string `envconfig:"VENDORPORTAL_CLOUDINARY_BASE_URL" default:"https://api.cloudinary.com"`
	MaxUploadMB  int    `envconfig:"VENDORPORTAL_MAX_UPLOAD_MB" default:"10"`
}

// Signed reports whether uploads carry an api key and signature instead of an unsigned preset.
func (c CloudinaryConfig) Signed() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// MaxUploadBytes converts the configured megabyte limit.
func (c CloudinaryConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

type PaystackConfig struct {
	SecretKey   string `envconfig:"VENDORPORTAL_PAYSTACK_SECRET_KEY"`
	BaseURL     string `envconfig:"VENDORPORTAL_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string `envconfig:"VENDORPORTAL_PAYSTACK_CALLBACK_URL"`
	Currency    string `envconfig:"VENDORPORTAL_PAYSTACK_CURRENCY" default:"NGN"`
}

// Direct reports whether the gateway is called directly instead of through the backend API.
func (p PaystackConfig) Direct() bool {
	return strings.TrimSpace(p.SecretKey) != ""
}

type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VENDORPORTAL_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VENDORPORTAL_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VENDORPORTAL_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VENDORPORTAL_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VENDORPORTAL_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VENDORPORTAL_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"VENDORPORTAL_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"VENDORPORTAL_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"VENDORPORTAL_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
	// RequestsPerSecond is the per-IP token bucket rate for every route; zero disables it.
	RequestsPerSecond float64 `envconfig:"VENDORPORTAL_RATE_LIMIT_RPS" default:"20"`
	Burst             int     `envconfig:"VENDORPORTAL_RATE_LIMIT_BURST" default:"40"`
}

type ReservationConfig struct {
	TTL           time.Duration `envconfig:"VENDORPORTAL_RESERVATION_TTL" default:"15m"`
	SweepInterval time.Duration `envconfig:"VENDORPORTAL_RESERVATION_SWEEP_INTERVAL" default:"1m"`
}

type CacheConfig struct {
	PublicInventoryTTL time.Duration `envconfig:"VENDORPORTAL_CACHE_PUBLIC_INVENTORY_TTL" default:"60s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VENDORPORTAL_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORPORTAL_AUTO_MIGRATE" default:"true"`
}
