package config

const (
	EnvPrefix = "FAMBOARD"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "FAMBOARD_APP_ENV"
	EnvPort   = "FAMBOARD_APP_PORT"

	EnvDBDSN  = "FAMBOARD_DB_DSN"
	EnvDBHost = "FAMBOARD_DB_HOST"
	EnvDBUser = "FAMBOARD_DB_USER"
	EnvDBName = "FAMBOARD_DB_NAME"

	EnvRedisURL       = "FAMBOARD_REDIS_URL"
	EnvJWTSecret      = "FAMBOARD_JWT_SECRET"
	EnvJWTIssuer      = "FAMBOARD_JWT_ISSUER"
	EnvCapTokenSecret = "FAMBOARD_CAPTOKEN_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
