package config

const EnvPrefix = "VENDORPORTAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

const (
	EnvAppEnv              = "VENDORPORTAL_APP_ENV"
	EnvPort                = "VENDORPORTAL_APP_PORT"
	EnvLogLevel            = "VENDORPORTAL_LOG_LEVEL"
	EnvAPIBaseURL          = "VENDORPORTAL_API_BASE_URL"
	EnvAPITimeout          = "VENDORPORTAL_API_TIMEOUT"
	EnvDBDriver            = "VENDORPORTAL_DB_DRIVER"
	EnvDBDSN               = "VENDORPORTAL_DB_DSN"
	EnvRedisURL            = "VENDORPORTAL_REDIS_URL"
	EnvCloudinaryCloud     = "VENDORPORTAL_CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryAPIKey    = "VENDORPORTAL_CLOUDINARY_API_KEY"
	EnvCloudinaryAPISecret = "VENDORPORTAL_CLOUDINARY_API_SECRET"
	EnvPaystackSecretKey   = "VENDORPORTAL_PAYSTACK_SECRET_KEY"
	EnvCORSAllowedOrigins  = "VENDORPORTAL_CORS_ALLOWED_ORIGINS"
	EnvReservationTTL      = "VENDORPORTAL_RESERVATION_TTL"
	EnvAccessTokenSecret   = "VENDORPORTAL_ACCESS_TOKEN_SECRET"
)
