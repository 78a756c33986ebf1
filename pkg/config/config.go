package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Marketplace  MarketplaceConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every invalid setting at once so a bad deploy fails with
// the full list.
func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.ensureDSN(),
		c.Marketplace.validate(),
		c.Outbox.validate(),
		c.PubSub.validate(),
		c.Cron.validate(),
	)
}

func positive(env string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive", env)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"QUOTEMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"QUOTEMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUOTEMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUOTEMARKET_LOG_WARN_STACK" default:"false"`
	// Comma separated; empty falls back to the local web client.
	CORSOrigins []string `envconfig:"QUOTEMARKET_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"QUOTEMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUOTEMARKET_DB_DSN"`
	Driver string `envconfig:"QUOTEMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUOTEMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"QUOTEMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUOTEMARKET_DB_USER"`
	LegacyPassword string `envconfig:"QUOTEMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUOTEMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUOTEMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTEMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTEMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTEMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTEMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"QUOTEMARKET_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTEMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUOTEMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTEMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTEMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTEMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTEMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTEMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTEMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTEMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUOTEMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUOTEMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUOTEMARKET_JWT_EXPIRATION_MINUTES" required:"true"`
	RequireSession    bool   `envconfig:"QUOTEMARKET_JWT_REQUIRE_SESSION" default:"true"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RateLimitConfig bounds bursty write endpoints per authenticated user.
type RateLimitConfig struct {
	QuoteSubmitWindow time.Duration `envconfig:"QUOTEMARKET_RATE_LIMIT_QUOTE_SUBMIT_WINDOW" default:"1m"`
	QuoteSubmitLimit  int           `envconfig:"QUOTEMARKET_RATE_LIMIT_QUOTE_SUBMIT_LIMIT" default:"30"`
	AcceptWindow      time.Duration `envconfig:"QUOTEMARKET_RATE_LIMIT_ACCEPT_WINDOW" default:"1m"`
	AcceptLimit       int           `envconfig:"QUOTEMARKET_RATE_LIMIT_ACCEPT_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"QUOTEMARKET_AUTO_MIGRATE" default:"false"`
	AcceptMutex  bool `envconfig:"QUOTEMARKET_FEATURE_ACCEPT_MUTEX" default:"true"`
	ServeMetrics bool `envconfig:"QUOTEMARKET_FEATURE_SERVE_METRICS" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"QUOTEMARKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	ClaimLease           time.Duration `envconfig:"QUOTEMARKET_EVENTING_CLAIM_LEASE" default:"2m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"QUOTEMARKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"QUOTEMARKET_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	QuotesTopic        string `envconfig:"QUOTEMARKET_PUBSUB_QUOTES_TOPIC" default:"qm-quote-events"`
	QuotesSubscription string `envconfig:"QUOTEMARKET_PUBSUB_QUOTES_SUBSCRIPTION" required:"true"`
	OrdersTopic        string `envconfig:"QUOTEMARKET_PUBSUB_ORDERS_TOPIC" default:"qm-order-events"`
	OrdersSubscription string `envconfig:"QUOTEMARKET_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	EmulatorHost       string `envconfig:"QUOTEMARKET_PUBSUB_EMULATOR_HOST"`
	MaxOutstanding     int    `envconfig:"QUOTEMARKET_PUBSUB_MAX_OUTSTANDING" default:"100"`
	ReceiveGoroutines  int    `envconfig:"QUOTEMARKET_PUBSUB_RECEIVE_GOROUTINES" default:"2"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QUOTEMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QUOTEMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QUOTEMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	return multierr.Combine(
		positive(EnvOutboxBatchSize, o.BatchSize),
		positive(EnvOutboxPollMS, o.PollIntervalMS),
		positive(EnvOutboxMaxAttempts, o.MaxAttempts),
	)
}

func (p PubSubConfig) validate() error {
	var err error
	if p.QuotesTopic != "" && p.QuotesTopic == p.OrdersTopic {
		err = fmt.Errorf("%s and %s must differ", EnvPubSubQuotesTopic, EnvPubSubOrdersTopic)
	}
	return multierr.Combine(err,
		positive(EnvPubSubMaxOutstanding, p.MaxOutstanding),
		positive(EnvPubSubReceiveGoroutines, p.ReceiveGoroutines),
	)
}

// MarketplaceConfig holds the quote window and sweeper tunables.
type MarketplaceConfig struct {
	DefaultQuotesExpireAfter time.Duration `envconfig:"QUOTEMARKET_DEFAULT_QUOTES_EXPIRE_AFTER" default:"24h"`
	SweepInterval            time.Duration `envconfig:"QUOTEMARKET_SWEEP_INTERVAL" default:"30s"`
	SweepBatchSize           int           `envconfig:"QUOTEMARKET_SWEEP_BATCH_SIZE" default:"200"`
	AcceptLockTTL            time.Duration `envconfig:"QUOTEMARKET_ACCEPT_LOCK_TTL" default:"5s"`
}

func (m MarketplaceConfig) validate() error {
	if m.DefaultQuotesExpireAfter < MinQuotesExpireAfter || m.DefaultQuotesExpireAfter > MaxQuotesExpireAfter {
		return fmt.Errorf("%s must be between %s and %s", EnvDefaultQuotesExpireAfter, MinQuotesExpireAfter, MaxQuotesExpireAfter)
	}
	if m.SweepInterval <= 0 || m.SweepInterval > MinQuotesExpireAfter {
		return fmt.Errorf("%s must be positive and at most %s", EnvSweepInterval, MinQuotesExpireAfter)
	}
	return nil
}

// CronConfig configures the scheduler runtime and housekeeping retention.
type CronConfig struct {
	LockTTL                   time.Duration `envconfig:"QUOTEMARKET_CRON_LOCK_TTL" default:"2m"`
	OutboxRetentionDays       int           `envconfig:"QUOTEMARKET_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"QUOTEMARKET_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	DLQRetentionDays          int           `envconfig:"QUOTEMARKET_CRON_DLQ_RETENTION_DAYS" default:"90"`
}

func (c CronConfig) validate() error {
	var err error
	if c.LockTTL <= 0 {
		err = fmt.Errorf("%s must be positive", EnvCronLockTTL)
	}
	return multierr.Combine(err,
		positive(EnvCronOutboxRetentionDays, c.OutboxRetentionDays),
		positive(EnvCronNotificationRetentionDays, c.NotificationRetentionDays),
		positive(EnvCronDLQRetentionDays, c.DLQRetentionDays),
	)
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
