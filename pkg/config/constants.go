package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "RESELLSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// MaxSyncChunkSize bounds rows per upsert statement.
const MaxSyncChunkSize = 500

const (
	EnvAppEnv    = "RESELLSYNC_APP_ENV"
	EnvLogLevel  = "RESELLSYNC_LOG_LEVEL"
	EnvUseSQLite = "RESELLSYNC_USE_SQLITE"

	EnvDBDSN  = "RESELLSYNC_DB_DSN"
	EnvDBHost = "RESELLSYNC_DB_HOST"
	EnvDBUser = "RESELLSYNC_DB_USER"
	EnvDBName = "RESELLSYNC_DB_NAME"

	EnvRedisURL = "RESELLSYNC_REDIS_URL"

	EnvSyncInterval          = "RESELLSYNC_SYNC_INTERVAL"
	EnvSyncChunkSize         = "RESELLSYNC_SYNC_CHUNK_SIZE"
	EnvSyncPartialFetchRatio = "RESELLSYNC_SYNC_PARTIAL_FETCH_RATIO"

	EnvRepricerInterval = "RESELLSYNC_REPRICER_INTERVAL"
	EnvThrottleWindow   = "RESELLSYNC_THROTTLE_WINDOW"

	EnvMarketplaceEmail    = "RESELLSYNC_MARKETPLACE_EMAIL"
	EnvMarketplacePassword = "RESELLSYNC_MARKETPLACE_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
