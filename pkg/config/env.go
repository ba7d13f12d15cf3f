package config

const (
	EnvPrefix = "LIBRIS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "LIBRIS_APP_ENV"
	EnvPort                    = "LIBRIS_APP_PORT"
	EnvDBDSN                   = "LIBRIS_DB_DSN"
	EnvDBHost                  = "LIBRIS_DB_HOST"
	EnvDBPort                  = "LIBRIS_DB_PORT"
	EnvDBUser                  = "LIBRIS_DB_USER"
	EnvDBPassword              = "LIBRIS_DB_PASSWORD"
	EnvDBName                  = "LIBRIS_DB_NAME"
	EnvRedisURL                = "LIBRIS_REDIS_URL"
	EnvJWTSecret               = "LIBRIS_JWT_SECRET"
	EnvJWTIssuer               = "LIBRIS_JWT_ISSUER"
	EnvJWTExpMins              = "LIBRIS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "LIBRIS_REFRESH_TOKEN_TTL_MINUTES"
	EnvCronInterval            = "LIBRIS_CRON_INTERVAL"
	EnvPricingRefreshOnChange  = "LIBRIS_PRICING_REFRESH_ON_PROMOTION_CHANGE"
	EnvPubSubDomainTopic       = "LIBRIS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub         = "LIBRIS_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvGCSBucket               = "LIBRIS_GCS_BUCKET_NAME"
	EnvGCPProjectID            = "LIBRIS_GCP_PROJECT_ID"
	EnvGoogleApplicationCreds  = "LIBRIS_GOOGLE_APPLICATION_CREDENTIALS"
	EnvGCPCredentialsJSON      = "LIBRIS_GCP_CREDENTIALS_JSON"
	EnvOTPTTL                  = "LIBRIS_OTP_TTL"
	EnvAuthRateLimitOTPWindow  = "LIBRIS_AUTH_RATE_LIMIT_OTP_WINDOW"
	EnvAuthRateLimitOTPPhone   = "LIBRIS_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
