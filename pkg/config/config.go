package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	OTP           OTPConfig
	FeatureFlags  FeatureFlagsConfig
	Pricing       PricingConfig
	Cron          CronConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string   `envconfig:"LIBRIS_APP_ENV" required:"true"`
	Port         string   `envconfig:"LIBRIS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"LIBRIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"LIBRIS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"LIBRIS_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LIBRIS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRIS_DB_DSN"`
	Driver string `envconfig:"LIBRIS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LIBRIS_DB_HOST"`
	Port     int    `envconfig:"LIBRIS_DB_PORT" default:"5432"`
	User     string `envconfig:"LIBRIS_DB_USER"`
	Password string `envconfig:"LIBRIS_DB_PASSWORD"`
	Name     string `envconfig:"LIBRIS_DB_NAME"`
	SSLMode  string `envconfig:"LIBRIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIBRIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIBRIS_REDIS_URL" required:"true"`
	Password     string        `envconfig:"LIBRIS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRIS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LIBRIS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LIBRIS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LIBRIS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LIBRIS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LIBRIS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LIBRIS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LIBRIS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LIBRIS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LIBRIS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LIBRIS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"LIBRIS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"LIBRIS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow  time.Duration `envconfig:"LIBRIS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"10m"`
	RegisterIPLimit int           `envconfig:"LIBRIS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	OTPWindow       time.Duration `envconfig:"LIBRIS_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPPhoneLimit   int           `envconfig:"LIBRIS_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"3"`
}

type OTPConfig struct {
	TTL         time.Duration `envconfig:"LIBRIS_OTP_TTL" default:"5m"`
	Length      int           `envconfig:"LIBRIS_OTP_LENGTH" default:"6"`
	MaxAttempts int           `envconfig:"LIBRIS_OTP_MAX_ATTEMPTS" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LIBRIS_AUTO_MIGRATE" default:"false"`
}

// PricingConfig controls how catalog discount annotations are kept current.
type PricingConfig struct {
	// RefreshOnPromotionChange re-persists annotations right after a promotion
	// is approved, rejected or deleted, instead of waiting for the cron worker.
	RefreshOnPromotionChange bool `envconfig:"LIBRIS_PRICING_REFRESH_ON_PROMOTION_CHANGE" default:"true"`
	RefreshBatchSize         int  `envconfig:"LIBRIS_PRICING_REFRESH_BATCH_SIZE" default:"500"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"LIBRIS_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"LIBRIS_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"LIBRIS_CRON_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LIBRIS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LIBRIS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LIBRIS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"LIBRIS_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"LIBRIS_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	MaxUploadMB   int    `envconfig:"LIBRIS_MAX_UPLOAD_MB" default:"10"`
}

// Enabled reports whether cover uploads are backed by a bucket.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LIBRIS_PUBSUB_DOMAIN_TOPIC" default:"libris-domain-events"`
	DomainSubscription string `envconfig:"LIBRIS_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LIBRIS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LIBRIS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LIBRIS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
