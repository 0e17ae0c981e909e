package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRUMBLY_APP_ENV" required:"true"`
	Port         string `envconfig:"CRUMBLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRUMBLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRUMBLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRUMBLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRUMBLY_DB_DSN"`
	Driver string `envconfig:"CRUMBLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRUMBLY_DB_HOST"`
	LegacyPort     int    `envconfig:"CRUMBLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRUMBLY_DB_USER"`
	LegacyPassword string `envconfig:"CRUMBLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRUMBLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRUMBLY_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CRUMBLY_SQLITE_PATH" default:"file:crumbly.db?_foreign_keys=on"`

	MaxOpenConns    int           `envconfig:"CRUMBLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRUMBLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRUMBLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRUMBLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRUMBLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRUMBLY_REDIS_ADDR"`
	Password     string        `envconfig:"CRUMBLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRUMBLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRUMBLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRUMBLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRUMBLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRUMBLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRUMBLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens minted by the external identity provider.
// The API only verifies them.
type JWTConfig struct {
	Secret    string `envconfig:"CRUMBLY_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"CRUMBLY_JWT_ISSUER" required:"true"`
	AdminRole string `envconfig:"CRUMBLY_JWT_ADMIN_ROLE" default:"admin"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRUMBLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRUMBLY_AUTO_MIGRATE" default:"false"`
	// DiscountPreview exposes the discount figures on the delivery quote.
	DiscountPreview bool `envconfig:"CRUMBLY_FEATURE_DISCOUNT_PREVIEW" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CRUMBLY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// CheckoutConfig holds the storefront's pricing and delivery policy.
type CheckoutConfig struct {
	OrderNumberPrefix    string        `envconfig:"CRUMBLY_ORDER_NUMBER_PREFIX" default:"CRB"`
	Timezone             string        `envconfig:"CRUMBLY_TIMEZONE" default:"America/Bogota"`
	CutoffHour           int           `envconfig:"CRUMBLY_CUTOFF_HOUR" default:"12"`
	MaxDeliveryDays      int           `envconfig:"CRUMBLY_MAX_DELIVERY_DAYS" default:"30"`
	ShippingFallbackCost int64         `envconfig:"CRUMBLY_SHIPPING_FALLBACK_COST" default:"20000"`
	IdempotencyTTL       time.Duration `envconfig:"CRUMBLY_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

// Location resolves the configured timezone.
func (c CheckoutConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c CheckoutConfig) validate() error {
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		return fmt.Errorf("%s must be between 0 and 23", EnvCutoffHour)
	}
	if c.MaxDeliveryDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxDeliveryDays)
	}
	if c.ShippingFallbackCost < 0 {
		return fmt.Errorf("%s must not be negative", EnvShippingFallback)
	}
	if strings.TrimSpace(c.OrderNumberPrefix) == "" {
		return fmt.Errorf("%s is required", EnvOrderNumberPrefix)
	}
	_, err := c.Location()
	return err
}

// GatewayConfig carries the hosted payment widget credentials.
type GatewayConfig struct {
	PublicKey       string        `envconfig:"CRUMBLY_GATEWAY_PUBLIC_KEY" required:"true"`
	IntegritySecret string        `envconfig:"CRUMBLY_GATEWAY_INTEGRITY_SECRET" required:"true"`
	EventsSecret    string        `envconfig:"CRUMBLY_GATEWAY_EVENTS_SECRET" required:"true"`
	Currency        string        `envconfig:"CRUMBLY_GATEWAY_CURRENCY" default:"COP"`
	RedirectURL     string        `envconfig:"CRUMBLY_GATEWAY_REDIRECT_URL" required:"true"`
	CheckoutURL     string        `envconfig:"CRUMBLY_GATEWAY_CHECKOUT_URL" default:"https://checkout.wompi.co/p/"`
	WebhookEventTTL time.Duration `envconfig:"CRUMBLY_GATEWAY_WEBHOOK_EVENT_TTL" default:"720h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CRUMBLY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	// Sink selects where the outbox publisher delivers events: pubsub or kafka.
	Sink string `envconfig:"CRUMBLY_EVENTING_SINK" default:"pubsub"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRUMBLY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CRUMBLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRUMBLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"CRUMBLY_PUBSUB_ORDERS_TOPIC" default:"crumbly-order-events"`
	PaymentsTopic string `envconfig:"CRUMBLY_PUBSUB_PAYMENTS_TOPIC" default:"crumbly-payment-events"`
}

type KafkaConfig struct {
	Brokers       []string      `envconfig:"CRUMBLY_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic   string        `envconfig:"CRUMBLY_KAFKA_ORDERS_TOPIC" default:"crumbly.orders"`
	PaymentsTopic string        `envconfig:"CRUMBLY_KAFKA_PAYMENTS_TOPIC" default:"crumbly.payments"`
	WriteTimeout  time.Duration `envconfig:"CRUMBLY_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CRUMBLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CRUMBLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CRUMBLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"CRUMBLY_CRON_INTERVAL" default:"24h"`
	LockTTL                  time.Duration `envconfig:"CRUMBLY_CRON_LOCK_TTL" default:"10m"`
	BlockedDateRetentionDays int           `envconfig:"CRUMBLY_BLOCKED_DATE_RETENTION_DAYS" default:"365"`
}

// RateLimitConfig throttles discount code probing on the public API.
type RateLimitConfig struct {
	DiscountWindow     time.Duration `envconfig:"CRUMBLY_RATE_LIMIT_DISCOUNT_WINDOW" default:"10m"`
	DiscountIPLimit    int           `envconfig:"CRUMBLY_RATE_LIMIT_DISCOUNT_IP" default:"30"`
	DiscountEmailLimit int           `envconfig:"CRUMBLY_RATE_LIMIT_DISCOUNT_EMAIL" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
