package config

const (
	EnvPrefix = "CRUMBLY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "CRUMBLY_APP_ENV"
	EnvPort   = "CRUMBLY_APP_PORT"

	EnvDBDSN  = "CRUMBLY_DB_DSN"
	EnvDBHost = "CRUMBLY_DB_HOST"
	EnvDBUser = "CRUMBLY_DB_USER"
	EnvDBName = "CRUMBLY_DB_NAME"

	EnvUseSQLite = "CRUMBLY_USE_SQLITE"
	EnvRedisURL  = "CRUMBLY_REDIS_URL"

	EnvJWTSecret = "CRUMBLY_JWT_SECRET"
	EnvJWTIssuer = "CRUMBLY_JWT_ISSUER"

	EnvOrderNumberPrefix = "CRUMBLY_ORDER_NUMBER_PREFIX"
	EnvTimezone          = "CRUMBLY_TIMEZONE"
	EnvCutoffHour        = "CRUMBLY_CUTOFF_HOUR"
	EnvMaxDeliveryDays   = "CRUMBLY_MAX_DELIVERY_DAYS"
	EnvShippingFallback  = "CRUMBLY_SHIPPING_FALLBACK_COST"

	EnvGatewayPublicKey       = "CRUMBLY_GATEWAY_PUBLIC_KEY"
	EnvGatewayIntegritySecret = "CRUMBLY_GATEWAY_INTEGRITY_SECRET"
	EnvGatewayEventsSecret    = "CRUMBLY_GATEWAY_EVENTS_SECRET"
	EnvGatewayRedirectURL     = "CRUMBLY_GATEWAY_REDIRECT_URL"

	EnvEventingSink = "CRUMBLY_EVENTING_SINK"
	EnvKafkaBrokers = "CRUMBLY_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
