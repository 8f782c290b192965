package config

const EnvPrefix = "SUPAWAVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SUPAWAVE_APP_ENV"
	EnvPort     = "SUPAWAVE_APP_PORT"
	EnvLogLevel = "SUPAWAVE_LOG_LEVEL"

	EnvDBDSN  = "SUPAWAVE_DB_DSN"
	EnvDBHost = "SUPAWAVE_DB_HOST"
	EnvDBUser = "SUPAWAVE_DB_USER"
	EnvDBName = "SUPAWAVE_DB_NAME"

	EnvRedisURL = "SUPAWAVE_REDIS_URL"

	EnvJWTSecret = "SUPAWAVE_JWT_SECRET"
	EnvJWTIssuer = "SUPAWAVE_JWT_ISSUER"

	EnvGCPProjectID = "SUPAWAVE_GCP_PROJECT_ID"

	EnvPubSubInventoryTopic    = "SUPAWAVE_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubNotificationTopic = "SUPAWAVE_PUBSUB_NOTIFICATION_TOPIC"

	EnvLowStockThreshold = "SUPAWAVE_INVENTORY_LOW_STOCK_THRESHOLD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
