package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Printify PrintifyConfig
	Sync     SyncConfig
	Webhook  WebhookConfig
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
	Env          string `envconfig:"PRINTSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PRINTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRINTSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTSYNC_DB_DSN"`
	Driver string `envconfig:"PRINTSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRINTSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTSYNC_DB_USER"`
	LegacyPassword string `envconfig:"PRINTSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"PRINTSYNC_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTSYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRINTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PrintifyConfig carries vendor API credentials and endpoint settings.
type PrintifyConfig struct {
	APIKey         string        `envconfig:"PRINTSYNC_PRINTIFY_API_KEY" required:"true"`
	BaseURL        string        `envconfig:"PRINTSYNC_PRINTIFY_BASE_URL" default:"https://api.printify.com/v1"`
	WebhookSecret  string        `envconfig:"PRINTSYNC_PRINTIFY_WEBHOOK_SECRET"`
	WebhookURL     string        `envconfig:"PRINTSYNC_PRINTIFY_WEBHOOK_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"PRINTSYNC_PRINTIFY_REQUEST_TIMEOUT" default:"30s"`
	RetryBound     int           `envconfig:"PRINTSYNC_PRINTIFY_RETRY_BOUND" default:"3"`
	RateLimitWait  time.Duration `envconfig:"PRINTSYNC_PRINTIFY_RATE_LIMIT_WAIT" default:"10s"`
	ShopIDs        []string      `envconfig:"PRINTSYNC_PRINTIFY_SHOP_IDS"`
}

// SyncConfig tunes the batch import pipeline.
type SyncConfig struct {
	PageSize        int           `envconfig:"PRINTSYNC_SYNC_PAGE_SIZE" default:"50"`
	UpsertBatchSize int           `envconfig:"PRINTSYNC_SYNC_UPSERT_BATCH_SIZE" default:"10"`
	ImageBatchSize  int           `envconfig:"PRINTSYNC_SYNC_IMAGE_BATCH_SIZE" default:"10"`
	SeedDelay       time.Duration `envconfig:"PRINTSYNC_SYNC_SEED_DELAY" default:"5s"`
	InterPageDelay  time.Duration `envconfig:"PRINTSYNC_SYNC_INTER_PAGE_DELAY" default:"30s"`
	FetchRetryBound int           `envconfig:"PRINTSYNC_SYNC_FETCH_RETRY_BOUND" default:"3"`
	ProgressTTL     time.Duration `envconfig:"PRINTSYNC_SYNC_PROGRESS_TTL" default:"1h"`
	QueueTTL        time.Duration `envconfig:"PRINTSYNC_SYNC_QUEUE_TTL" default:"24h"`
	LeaseTTL        time.Duration `envconfig:"PRINTSYNC_SYNC_LEASE_TTL" default:"2h"`
	PollInterval    time.Duration `envconfig:"PRINTSYNC_SYNC_POLL_INTERVAL" default:"500ms"`
	LogRetention    time.Duration `envconfig:"PRINTSYNC_SYNC_LOG_RETENTION" default:"720h"`
}

// WebhookConfig tunes the health / reconciliation loop.
type WebhookConfig struct {
	HealthTimeout time.Duration `envconfig:"PRINTSYNC_WEBHOOK_HEALTH_TIMEOUT" default:"24h"`
	CronInterval  time.Duration `envconfig:"PRINTSYNC_WEBHOOK_CRON_INTERVAL" default:"1h"`
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
