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
	Razorpay     RazorpayConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VASTRA_APP_ENV" required:"true"`
	Port         string `envconfig:"VASTRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VASTRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VASTRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VASTRA_DB_DSN"`
	Driver string `envconfig:"VASTRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VASTRA_DB_HOST"`
	LegacyPort     int    `envconfig:"VASTRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VASTRA_DB_USER"`
	LegacyPassword string `envconfig:"VASTRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VASTRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VASTRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VASTRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VASTRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VASTRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VASTRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VASTRA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"VASTRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VASTRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VASTRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VASTRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VASTRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VASTRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VASTRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VASTRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VASTRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VASTRA_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"VASTRA_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"VASTRA_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string        `envconfig:"VASTRA_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string        `envconfig:"VASTRA_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"VASTRA_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout       time.Duration `envconfig:"VASTRA_RAZORPAY_TIMEOUT" default:"15s"`
}

// PaymentSecret returns the secret used to verify callback and webhook
// signatures. Razorpay signs checkout callbacks with the key secret and
// webhooks with a dedicated webhook secret when one is configured.
func (r RazorpayConfig) PaymentSecret() string {
	if r.WebhookSecret != "" {
		return r.WebhookSecret
	}
	return r.KeySecret
}

type CheckoutConfig struct {
	Currency       string        `envconfig:"VASTRA_CHECKOUT_CURRENCY" default:"INR"`
	IdempotencyTTL time.Duration `envconfig:"VASTRA_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VASTRA_AUTO_MIGRATE" default:"false"`
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
