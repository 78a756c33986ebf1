package config

import "time"

const (
	EnvPrefix = "QUOTEMARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Quote window bounds a buyer may choose for a quote request.
const (
	MinQuotesExpireAfter = time.Hour
	MaxQuotesExpireAfter = 72 * time.Hour
)

const (
	EnvAppEnv   = "QUOTEMARKET_APP_ENV"
	EnvPort     = "QUOTEMARKET_APP_PORT"
	EnvLogLevel = "QUOTEMARKET_LOG_LEVEL"

	EnvDBDSN    = "QUOTEMARKET_DB_DSN"
	EnvDBHost   = "QUOTEMARKET_DB_HOST"
	EnvDBUser   = "QUOTEMARKET_DB_USER"
	EnvDBName   = "QUOTEMARKET_DB_NAME"
	EnvDBDriver = "QUOTEMARKET_DB_DRIVER"

	EnvRedisURL = "QUOTEMARKET_REDIS_URL"

	EnvJWTSecret  = "QUOTEMARKET_JWT_SECRET"
	EnvJWTIssuer  = "QUOTEMARKET_JWT_ISSUER"
	EnvJWTExpMins = "QUOTEMARKET_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "QUOTEMARKET_GCP_PROJECT_ID"

	EnvPubSubQuotesTopic = "QUOTEMARKET_PUBSUB_QUOTES_TOPIC"
	EnvPubSubQuotesSub   = "QUOTEMARKET_PUBSUB_QUOTES_SUBSCRIPTION"
	EnvPubSubOrdersTopic = "QUOTEMARKET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "QUOTEMARKET_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvPubSubMaxOutstanding    = "QUOTEMARKET_PUBSUB_MAX_OUTSTANDING"
	EnvPubSubReceiveGoroutines = "QUOTEMARKET_PUBSUB_RECEIVE_GOROUTINES"

	EnvOutboxBatchSize   = "QUOTEMARKET_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "QUOTEMARKET_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "QUOTEMARKET_OUTBOX_MAX_ATTEMPTS"

	EnvCronLockTTL                   = "QUOTEMARKET_CRON_LOCK_TTL"
	EnvCronOutboxRetentionDays       = "QUOTEMARKET_CRON_OUTBOX_RETENTION_DAYS"
	EnvCronNotificationRetentionDays = "QUOTEMARKET_CRON_NOTIFICATION_RETENTION_DAYS"
	EnvCronDLQRetentionDays          = "QUOTEMARKET_CRON_DLQ_RETENTION_DAYS"

	EnvDefaultQuotesExpireAfter = "QUOTEMARKET_DEFAULT_QUOTES_EXPIRE_AFTER"
	EnvSweepInterval            = "QUOTEMARKET_SWEEP_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
