package app

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/procureflow/procureflow/internal/platform/cache"
	"github.com/procureflow/procureflow/internal/platform/db"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// Empty disables snapshot persistence; the workflow then lives in memory only.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	SnapshotInterval  time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"5m"`
	SnapshotRetention int           `envconfig:"SNAPSHOT_RETENTION" default:"20"`
	SeedSampleData    bool          `envconfig:"SEED_SAMPLE_DATA" default:"true"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	MailFrom    string `envconfig:"MAIL_FROM" default:"procurement@procureflow.local"`
	CompanyName string `envconfig:"COMPANY_NAME" default:"ProcureFlow"`
}

// LoadConfig reads configuration from a local .env file (when present) and
// environment variables. Variables already set in the environment win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SnapshotInterval < 0 {
		return errors.New("snapshot interval must not be negative")
	}
	if c.SnapshotRetention < 1 {
		return errors.New("snapshot retention must be at least 1")
	}
	if c.RateLimitPerMinute < 1 {
		return errors.New("rate limit must be at least 1 request per minute")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// PersistenceEnabled reports whether snapshots are written to PostgreSQL.
func (c *Config) PersistenceEnabled() bool {
	return c != nil && c.PGDSN != ""
}

// Redis returns the connection settings shared by Redis clients and the job queue.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Postgres returns the pool settings.
func (c *Config) Postgres() db.Options {
	return db.Options{MaxConns: c.PGMaxConns}
}
