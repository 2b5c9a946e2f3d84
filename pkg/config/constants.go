package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "DISHPATCH_DB_DSN"
	EnvDBHost = "DISHPATCH_DB_HOST"
	EnvDBUser = "DISHPATCH_DB_USER"
	EnvDBName = "DISHPATCH_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
