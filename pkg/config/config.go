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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Inventory    InventoryConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPAWAVE_APP_ENV" required:"true"`
	Port         string `envconfig:"SUPAWAVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUPAWAVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUPAWAVE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SUPAWAVE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUPAWAVE_SERVICE_KIND" default:"api"`
	// MetricsAddr is the /metrics listener of the background workers; the
	// API serves metrics on its own router.
	MetricsAddr string `envconfig:"SUPAWAVE_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUPAWAVE_DB_DSN"`
	Driver string `envconfig:"SUPAWAVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPAWAVE_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPAWAVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPAWAVE_DB_USER"`
	LegacyPassword string `envconfig:"SUPAWAVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPAWAVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPAWAVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPAWAVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPAWAVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPAWAVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPAWAVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxRetries bounds how often WithTx replays a unit of work that lost a
	// serialization or deadlock race.
	TxRetries     int           `envconfig:"SUPAWAVE_DB_TX_RETRIES" default:"2"`
	SlowQueryTime time.Duration `envconfig:"SUPAWAVE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPAWAVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPAWAVE_REDIS_ADDR"`
	Password     string        `envconfig:"SUPAWAVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPAWAVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPAWAVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPAWAVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPAWAVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPAWAVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPAWAVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers verification; tokens are minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"SUPAWAVE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SUPAWAVE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate       bool          `envconfig:"SUPAWAVE_AUTO_MIGRATE" default:"false"`
	RealtimeStockFeed bool          `envconfig:"SUPAWAVE_REALTIME_STOCK_FEED" default:"true"`
	IdempotencyKeyTTL time.Duration `envconfig:"SUPAWAVE_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SUPAWAVE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SUPAWAVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SUPAWAVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventoryTopic           string `envconfig:"SUPAWAVE_PUBSUB_INVENTORY_TOPIC" default:"sw-inventory-events"`
	InventorySubscription    string `envconfig:"SUPAWAVE_PUBSUB_INVENTORY_SUBSCRIPTION"`
	NotificationTopic        string `envconfig:"SUPAWAVE_PUBSUB_NOTIFICATION_TOPIC" default:"sw-notification-events"`
	NotificationSubscription string `envconfig:"SUPAWAVE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SUPAWAVE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SUPAWAVE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SUPAWAVE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"SUPAWAVE_INVENTORY_LOW_STOCK_THRESHOLD" default:"10"`
	DefaultPageSize   int `envconfig:"SUPAWAVE_INVENTORY_DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize       int `envconfig:"SUPAWAVE_INVENTORY_MAX_PAGE_SIZE" default:"100"`
}

func (i InventoryConfig) validate() error {
	if i.LowStockThreshold < 0 {
		return fmt.Errorf("%s must be >= 0", EnvLowStockThreshold)
	}
	if i.DefaultPageSize <= 0 || i.MaxPageSize < i.DefaultPageSize {
		return fmt.Errorf("inventory page sizes invalid: default=%d max=%d", i.DefaultPageSize, i.MaxPageSize)
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"SUPAWAVE_CRON_INTERVAL" default:"1h"`
	StaleTransferAge    time.Duration `envconfig:"SUPAWAVE_CRON_STALE_TRANSFER_AGE" default:"72h"`
	OutboxRetentionDays int           `envconfig:"SUPAWAVE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
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
