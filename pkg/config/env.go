package config

// EnvPrefix is handed to envconfig; every field below declares its full key.
const EnvPrefix = "SHOPCORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "SHOPCORE_APP_ENV"
	EnvPort      = "SHOPCORE_APP_PORT"
	EnvLogLevel  = "SHOPCORE_LOG_LEVEL"
	EnvLogFormat = "SHOPCORE_LOG_FORMAT"
	EnvCORS      = "SHOPCORE_CORS_ORIGINS"

	EnvDBDSN  = "SHOPCORE_DB_DSN"
	EnvDBHost = "SHOPCORE_DB_HOST"
	EnvDBUser = "SHOPCORE_DB_USER"
	EnvDBName = "SHOPCORE_DB_NAME"

	EnvRedisURL = "SHOPCORE_REDIS_URL"

	EnvJWTSecret = "SHOPCORE_JWT_SECRET"
	EnvJWTIssuer = "SHOPCORE_JWT_ISSUER"

	EnvStripeAPIKey        = "SHOPCORE_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "SHOPCORE_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv           = "SHOPCORE_STRIPE_ENV"
	EnvStripeCurrency      = "SHOPCORE_STRIPE_CURRENCY"

	EnvUseSQLite = "SHOPCORE_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
