package config

// EnvPrefix scopes every envconfig lookup.
const EnvPrefix = "PRINTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PRINTSYNC_DB_DSN"
	EnvDBHost = "PRINTSYNC_DB_HOST"
	EnvDBUser = "PRINTSYNC_DB_USER"
	EnvDBName = "PRINTSYNC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
