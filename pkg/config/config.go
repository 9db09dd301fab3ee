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
	FeatureFlags FeatureFlagsConfig
	Sync         SyncConfig
	Repricer     RepricerConfig
	Throttle     ThrottleConfig
	Marketplace  MarketplaceConfig
	Notifier     NotifierConfig
	GCP          GCPConfig
	Ops          OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Sync.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESELLSYNC_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"RESELLSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESELLSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RESELLSYNC_SERVICE_KIND" default:"worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"RESELLSYNC_DB_DSN"`
	Driver string `envconfig:"RESELLSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESELLSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"RESELLSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESELLSYNC_DB_USER"`
	LegacyPassword string `envconfig:"RESELLSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESELLSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESELLSYNC_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"RESELLSYNC_SQLITE_PATH" default:"resellsync.db"`

	MaxOpenConns    int           `envconfig:"RESELLSYNC_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"RESELLSYNC_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"RESELLSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESELLSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESELLSYNC_REDIS_URL"`
	Address      string        `envconfig:"RESELLSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"RESELLSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESELLSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESELLSYNC_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"RESELLSYNC_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"RESELLSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESELLSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESELLSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RESELLSYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RESELLSYNC_AUTO_MIGRATE" default:"false"`
}

// SyncConfig drives the reconciliation loop.
type SyncConfig struct {
	Interval          time.Duration `envconfig:"RESELLSYNC_SYNC_INTERVAL" default:"60s"`
	MinPause          time.Duration `envconfig:"RESELLSYNC_SYNC_MIN_PAUSE" default:"5s"`
	ChunkSize         int           `envconfig:"RESELLSYNC_SYNC_CHUNK_SIZE" default:"500"`
	PartialFetchRatio float64       `envconfig:"RESELLSYNC_SYNC_PARTIAL_FETCH_RATIO" default:"0.9"`
	LockTTL           time.Duration `envconfig:"RESELLSYNC_SYNC_LOCK_TTL" default:"10m"`
}

func (s SyncConfig) validate() error {
	if s.ChunkSize <= 0 || s.ChunkSize > MaxSyncChunkSize {
		return fmt.Errorf("%s must be between 1 and %d", EnvSyncChunkSize, MaxSyncChunkSize)
	}
	if s.PartialFetchRatio <= 0 || s.PartialFetchRatio > 1 {
		return fmt.Errorf("%s must be in (0, 1]", EnvSyncPartialFetchRatio)
	}
	return nil
}

// RepricerConfig drives the automated undercut loop.
type RepricerConfig struct {
	Enabled         bool          `envconfig:"RESELLSYNC_REPRICER_ENABLED" default:"true"`
	Interval        time.Duration `envconfig:"RESELLSYNC_REPRICER_INTERVAL" default:"5m"`
	MinPause        time.Duration `envconfig:"RESELLSYNC_REPRICER_MIN_PAUSE" default:"5s"`
	DuplicateWindow time.Duration `envconfig:"RESELLSYNC_REPRICER_DUPLICATE_WINDOW" default:"5m"`
	CallTimeout     time.Duration `envconfig:"RESELLSYNC_REPRICER_CALL_TIMEOUT" default:"30s"`
	LockTTL         time.Duration `envconfig:"RESELLSYNC_REPRICER_LOCK_TTL" default:"30m"`
}

type ThrottleConfig struct {
	Window            time.Duration `envconfig:"RESELLSYNC_THROTTLE_WINDOW" default:"24h"`
	RetentionInterval time.Duration `envconfig:"RESELLSYNC_THROTTLE_RETENTION_INTERVAL" default:"24h"`
}

// MarketplaceConfig configures the upstream GraphQL client.
type MarketplaceConfig struct {
	APIURL                string        `envconfig:"RESELLSYNC_MARKETPLACE_API_URL" default:"https://api.sourcex.in/graphql/"`
	Email                 string        `envconfig:"RESELLSYNC_MARKETPLACE_EMAIL"`
	Password              string        `envconfig:"RESELLSYNC_MARKETPLACE_PASSWORD"`
	PlatformName          string        `envconfig:"RESELLSYNC_MARKETPLACE_PLATFORM_NAME" default:"SourceX"`
	BaseURL               string        `envconfig:"RESELLSYNC_MARKETPLACE_BASE_URL" default:"https://sourcex.in"`
	CommissionMarketplace string        `envconfig:"RESELLSYNC_MARKETPLACE_COMMISSION_SOURCE" default:"culturecircle"`
	PageSize              int           `envconfig:"RESELLSYNC_MARKETPLACE_PAGE_SIZE" default:"100"`
	MaxRetries            int           `envconfig:"RESELLSYNC_MARKETPLACE_MAX_RETRIES" default:"3"`
	RetryBackoff          time.Duration `envconfig:"RESELLSYNC_MARKETPLACE_RETRY_BACKOFF" default:"500ms"`
	RefreshBuffer         time.Duration `envconfig:"RESELLSYNC_MARKETPLACE_REFRESH_BUFFER" default:"5m"`
	RequestsPerSecond     float64       `envconfig:"RESELLSYNC_MARKETPLACE_RPS" default:"4"`
	Timeout               time.Duration `envconfig:"RESELLSYNC_MARKETPLACE_TIMEOUT" default:"30s"`
}

// Configured reports whether credentials were provided.
func (m MarketplaceConfig) Configured() bool {
	return strings.TrimSpace(m.Email) != "" && strings.TrimSpace(m.Password) != ""
}

type NotifierConfig struct {
	WebhookURL  string        `envconfig:"RESELLSYNC_NOTIFIER_WEBHOOK_URL"`
	PubSubTopic string        `envconfig:"RESELLSYNC_NOTIFIER_PUBSUB_TOPIC"`
	Timeout     time.Duration `envconfig:"RESELLSYNC_NOTIFIER_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RESELLSYNC_GCP_PROJECT_ID"`
}

type OpsConfig struct {
	Addr string `envconfig:"RESELLSYNC_OPS_ADDR" default:":9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.Driver == DBDriverSQLite {
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
