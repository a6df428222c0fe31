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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPCORE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SHOPCORE_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"SHOPCORE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"SHOPCORE_DB_DSN"`
	SQLitePath string `envconfig:"SHOPCORE_DB_SQLITE_PATH" default:"shopcore.db"`

	LegacyHost     string `envconfig:"SHOPCORE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPCORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPCORE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPCORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPCORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPCORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPCORE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"SHOPCORE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SHOPCORE_JWT_ISSUER" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"SHOPCORE_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"SHOPCORE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"SHOPCORE_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"SHOPCORE_STRIPE_CURRENCY" default:"usd"`
	SuccessURL    string `envconfig:"SHOPCORE_STRIPE_SUCCESS_URL" default:"http://localhost:3000"`
	CancelURL     string `envconfig:"SHOPCORE_STRIPE_CANCEL_URL" default:"http://localhost:3000"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// NormalizedCurrency returns the lower-case ISO currency Stripe expects.
func (s StripeConfig) NormalizedCurrency() string {
	currency := strings.TrimSpace(strings.ToLower(s.Currency))
	if currency == "" {
		return "usd"
	}
	return currency
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPCORE_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	TaskTimeout    time.Duration `envconfig:"SHOPCORE_WEBHOOK_TASK_TIMEOUT" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPCORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPCORE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
