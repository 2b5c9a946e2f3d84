package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Pricing  PricingConfig
	Cache    CacheConfig
	Ledger   LedgerConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Consumer ConsumerConfig
	Flags    FeatureFlagsConfig
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
	Env          string `envconfig:"DISHPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISHPATCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DISHPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISHPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DISHPATCH_DB_DSN"`
	Driver string `envconfig:"DISHPATCH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DISHPATCH_DB_HOST"`
	Port     int    `envconfig:"DISHPATCH_DB_PORT" default:"5432"`
	User     string `envconfig:"DISHPATCH_DB_USER"`
	Password string `envconfig:"DISHPATCH_DB_PASSWORD"`
	Name     string `envconfig:"DISHPATCH_DB_NAME"`
	SSLMode  string `envconfig:"DISHPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISHPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHPATCH_REDIS_URL"`
	Address      string        `envconfig:"DISHPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PricingConfig drives the cart totals policy. Tax is expressed in basis
// points, so 8% is 800.
type PricingConfig struct {
	TaxRateBps       int64 `envconfig:"DISHPATCH_PRICING_TAX_RATE_BPS" default:"800"`
	DeliveryFeeCents int64 `envconfig:"DISHPATCH_PRICING_DELIVERY_FEE_CENTS" default:"299"`
}

type CacheConfig struct {
	CartTTL time.Duration `envconfig:"DISHPATCH_CACHE_CART_TTL" default:"1h"`
}

// LedgerConfig bounds idempotency records. TokenCacheTTL caps the Redis
// fast-path entry; RecordTTL is stamped onto the durable row for reaping.
type LedgerConfig struct {
	TokenCacheTTL time.Duration `envconfig:"DISHPATCH_LEDGER_TOKEN_CACHE_TTL" default:"24h"`
	RecordTTL     time.Duration `envconfig:"DISHPATCH_LEDGER_RECORD_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISHPATCH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DISHPATCH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DISHPATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"DISHPATCH_PUBSUB_ORDERS_TOPIC" default:"dp-order-events"`
	OrdersSubscription string `envconfig:"DISHPATCH_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DISHPATCH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DISHPATCH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ConsumerConfig tunes the event consumer workers.
type ConsumerConfig struct {
	DedupTTL time.Duration `envconfig:"DISHPATCH_CONSUMER_DEDUP_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISHPATCH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISHPATCH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
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
