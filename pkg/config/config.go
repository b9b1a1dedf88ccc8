package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SWIFTDROP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SWIFTDROP_DB_DSN"
	EnvDBHost = "SWIFTDROP_DB_HOST"
	EnvDBUser = "SWIFTDROP_DB_USER"
	EnvDBName = "SWIFTDROP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Tracking      TrackingConfig
	Earnings      EarningsConfig
	Cron          CronConfig
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
	Env          string `envconfig:"SWIFTDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWIFTDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTDROP_DB_DSN"`
	Driver string `envconfig:"SWIFTDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTDROP_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTDROP_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SWIFTDROP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SWIFTDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SWIFTDROP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SWIFTDROP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int           `envconfig:"SWIFTDROP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"SWIFTDROP_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"SWIFTDROP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"SWIFTDROP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"SWIFTDROP_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"SWIFTDROP_PASSWORD_RESET_TTL" default:"30m"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SWIFTDROP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool   `envconfig:"SWIFTDROP_USE_SQLITE" default:"false"`
	AutoMigrate   bool   `envconfig:"SWIFTDROP_AUTO_MIGRATE" default:"false"`
	GCSAccessMode string `envconfig:"SWIFTDROP_GCS_ACCESS_MODE" default:"public"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SWIFTDROP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SWIFTDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SWIFTDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	ProofBucket       string        `envconfig:"SWIFTDROP_GCS_PROOF_BUCKET" default:"delivery-proofs"`
	ProfileBucket     string        `envconfig:"SWIFTDROP_GCS_PROFILE_BUCKET" default:"profile-images"`
	MaxUploadMB       int           `envconfig:"SWIFTDROP_GCS_MAX_UPLOAD_MB" default:"15"`
	UploadTimeout     time.Duration `envconfig:"SWIFTDROP_GCS_UPLOAD_TIMEOUT" default:"30s"`
	DownloadURLExpiry time.Duration `envconfig:"SWIFTDROP_GCS_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type PubSubConfig struct {
	NotificationTopic        string        `envconfig:"SWIFTDROP_PUBSUB_NOTIFICATION_TOPIC" default:"sd-notification-events"`
	NotificationSubscription string        `envconfig:"SWIFTDROP_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	DeliveryTopic            string        `envconfig:"SWIFTDROP_PUBSUB_DELIVERY_TOPIC" default:"sd-delivery-events"`
	DeliverySubscription     string        `envconfig:"SWIFTDROP_PUBSUB_DELIVERY_SUBSCRIPTION"`
	IdempotencyTTL           time.Duration `envconfig:"SWIFTDROP_PUBSUB_IDEMPOTENCY_TTL" default:"24h"`
}

// TrackingConfig controls the driver location reporting loop.
type TrackingConfig struct {
	SampleInterval  time.Duration `envconfig:"SWIFTDROP_TRACKING_SAMPLE_INTERVAL" default:"30s"`
	DistanceFilterM float64       `envconfig:"SWIFTDROP_TRACKING_DISTANCE_FILTER_M" default:"50"`
	RetentionDays   int           `envconfig:"SWIFTDROP_TRACKING_RETENTION_DAYS" default:"30"`
	PresenceTimeout time.Duration `envconfig:"SWIFTDROP_TRACKING_PRESENCE_TIMEOUT" default:"10m"`
}

type EarningsConfig struct {
	Currency string `envconfig:"SWIFTDROP_EARNINGS_CURRENCY" default:"ZAR"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"SWIFTDROP_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL      time.Duration `envconfig:"SWIFTDROP_CRON_LOCK_TTL" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
