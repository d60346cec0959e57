package config

// EnvPrefix is passed to envconfig; the struct tags carry the full names.
const EnvPrefix = "storefront"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "STOREFRONT_APP_ENV"
	EnvPort   = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvTaxProcessor = "STOREFRONT_TAX_PROCESSOR"
	EnvTaxFlatRate  = "STOREFRONT_TAX_FLAT_RATE_PERCENT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
