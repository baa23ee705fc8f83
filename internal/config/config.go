package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/navneet-singh26/inventory-sync/pkg/config"
)

// Config holds all configuration for the inventory sync service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"INVENTORY_HTTP_PORT" envDefault:"8080"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Lock     LockConfig
	Cache    CacheConfig
	Txn      TxnConfig
	Scheduler SchedulerConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Adapters AdaptersConfig
}

// PostgresConfig configures the primary stock store.
type PostgresConfig struct {
	Host                string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port                int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User                string `env:"POSTGRES_USER" envDefault:"inventory"`
	Password            string `env:"POSTGRES_PASSWORD" envDefault:"inventory_secret"`
	Database            string `env:"INVENTORY_DB_NAME" envDefault:"inventory_db"`
	SSLMode             string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns            int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	MaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig configures the read cache client (C5). Distinct from the
// Redlock server pool, which is independently addressed in LockConfig so
// that lock quorum servers can be genuinely separate Redis instances.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LockServer identifies one Redlock quorum participant.
type LockServer struct {
	Host string
	Port int
	DB   int
}

// LockConfig configures the distributed lock service (C3).
type LockConfig struct {
	// ServerAddrs is a comma-separated list of host:port[:db] entries. N
	// should be odd and >= 3 for a meaningful quorum.
	ServerAddrs       []string `env:"REDLOCK_SERVERS" envDefault:"localhost:6379:1,localhost:6379:2,localhost:6379:3" envSeparator:","`
	DefaultTTLSeconds float64  `env:"LOCK_TIMEOUT" envDefault:"30"`
	RetryDelaySeconds float64 `env:"LOCK_RETRY_DELAY" envDefault:"0.2"`
	RetryTimes        int     `env:"LOCK_RETRY_TIMES" envDefault:"3"`
	PerServerTimeoutMs int    `env:"LOCK_SERVER_TIMEOUT_MS" envDefault:"50"`

	FlashSaleTTLSeconds      float64 `env:"FLASHSALE_LOCK_TIMEOUT" envDefault:"5"`
	FlashSaleRetryTimes      int     `env:"FLASHSALE_LOCK_RETRY_TIMES" envDefault:"10"`
	FlashSaleRetryDelaySeconds float64 `env:"FLASHSALE_LOCK_RETRY_DELAY" envDefault:"0.05"`
}

// CacheConfig configures the read cache (C5).
type CacheConfig struct {
	TTLSeconds int `env:"CACHE_TTL_SECONDS" envDefault:"60"`
}

// TxnConfig configures the transaction log (C2).
type TxnConfig struct {
	RetentionDays int `env:"TRANSACTION_RETENTION_DAYS" envDefault:"90"`
}

// SchedulerConfig configures the sync scheduler (C7).
type SchedulerConfig struct {
	WorkerPoolSize          int `env:"WORKER_POOL_SIZE" envDefault:"8"`
	WarehouseMaxRetries     int `env:"WAREHOUSE_MAX_RETRIES" envDefault:"3"`
	WarehouseBackoffSeconds int `env:"WAREHOUSE_BACKOFF_BASE_SECONDS" envDefault:"60"`
	MarketplaceMaxRetries   int `env:"MARKETPLACE_MAX_RETRIES" envDefault:"3"`
	MarketplaceBackoffSeconds int `env:"MARKETPLACE_BACKOFF_BASE_SECONDS" envDefault:"120"`
	FlashSaleMaxRetries     int `env:"FLASHSALE_MAX_RETRIES" envDefault:"5"`
	FlashSaleBackoffSeconds int `env:"FLASHSALE_BACKOFF_BASE_SECONDS" envDefault:"1"`
	QueueCapacity           int `env:"SCHEDULER_QUEUE_CAPACITY" envDefault:"256"`
}

// KafkaConfig configures domain event publication.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic   string   `env:"KAFKA_STOCK_EVENTS_TOPIC" envDefault:"inventory.stock-events"`
}

// AdaptersConfig configures the external warehouse and marketplace
// integrations (§6's "per-marketplace credentials
// {api_url, api_key, seller_id | user_token | shop_name}"). Each entry is a
// `name=base_url=auth_value` triple; WarehouseAdapters/MarketplaceAdapters
// are parsed into adapter.Config values by internal/app at startup.
type AdaptersConfig struct {
	WarehouseAdapters   []string `env:"WAREHOUSE_ADAPTERS" envSeparator:";" envDefault:""`
	MarketplaceAdapters []string `env:"MARKETPLACE_ADAPTERS" envSeparator:";" envDefault:""`
}

// AdapterEntry is one parsed "name=base_url=auth_value" definition.
type AdapterEntry struct {
	Name      string
	BaseURL   string
	AuthValue string
}

// ParseAdapterEntries splits a list of "name=base_url=auth_value" strings,
// skipping blanks so an unset env var yields no adapters.
func ParseAdapterEntries(raw []string) ([]AdapterEntry, error) {
	entries := make([]AdapterEntry, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		parts := strings.SplitN(s, "=", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid adapter entry %q: want name=base_url=auth_value", s)
		}
		entries = append(entries, AdapterEntry{Name: parts[0], BaseURL: parts[1], AuthValue: parts[2]})
	}
	return entries, nil
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load inventory sync config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.Lock.ServerAddrs) < 3 {
		return fmt.Errorf("REDLOCK_SERVERS must list at least 3 servers for a meaningful quorum, got %d", len(c.Lock.ServerAddrs))
	}
	if len(c.Lock.ServerAddrs)%2 == 0 {
		return fmt.Errorf("REDLOCK_SERVERS should list an odd count of servers, got %d", len(c.Lock.ServerAddrs))
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be > 0, got %d", c.Cache.TTLSeconds)
	}
	if c.Txn.RetentionDays <= 0 {
		return fmt.Errorf("TRANSACTION_RETENTION_DAYS must be > 0, got %d", c.Txn.RetentionDays)
	}
	if c.Scheduler.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be > 0, got %d", c.Scheduler.WorkerPoolSize)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}
