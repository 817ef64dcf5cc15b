package config

// EnvPrefix is the envconfig prefix shared by every variable the service
// reads.
const EnvPrefix = "VASTRA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "VASTRA_DB_DSN"
	EnvDBHost = "VASTRA_DB_HOST"
	EnvDBUser = "VASTRA_DB_USER"
	EnvDBName = "VASTRA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
