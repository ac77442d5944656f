package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite|postgres
	DBPath      string `envconfig:"DB_PATH" default:"./data/dailyping.db"`
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	LedgerBackend string        `envconfig:"LEDGER_BACKEND" default:"sql"` // sql|redis|memory
	RedisAddr     []string      `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisCluster  bool          `envconfig:"REDIS_CLUSTER" default:"false"`
	LedgerTTL     time.Duration `envconfig:"LEDGER_TTL" default:"0"` // 0 keeps claims forever

	DefaultTZ          string        `envconfig:"DEFAULT_TZ" default:"America/New_York"`
	DefaultTriggerTime string        `envconfig:"DEFAULT_TRIGGER_TIME" default:"08:00"`
	TickInterval       time.Duration `envconfig:"TICK_INTERVAL" default:"60s"`
	ReconcileInterval  time.Duration `envconfig:"RECONCILE_INTERVAL" default:"15m"`
	UserTimeout        time.Duration `envconfig:"USER_TIMEOUT" default:"20s"`
	Workers            int           `envconfig:"WORKERS" default:"8"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"465"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `envconfig:"VAPID_SUBSCRIBER" default:"mailto:support@dailyping.org"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"` // optional push channel
	StripeSecretKey  string `envconfig:"STRIPE_SECRET_KEY"`  // empty disables reconciliation

	AppURL   string `envconfig:"APP_URL" default:"https://dailyping.org"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the app cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return errors.New("DATABASE_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.LedgerBackend {
	case "sql", "memory":
	case "redis":
		if len(c.RedisAddr) == 0 {
			return errors.New("REDIS_ADDR is required for the redis ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.TickInterval <= 0 || c.ReconcileInterval <= 0 {
		return errors.New("intervals must be positive")
	}
	if c.LedgerTTL < 0 {
		return errors.New("LEDGER_TTL must not be negative")
	}
	return nil
}
