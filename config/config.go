package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	// ModeSync processes webhooks inside the request.
	ModeSync = "sync"
	// ModeKafka processes webhooks from the orders topic.
	ModeKafka = "kafka"
	// ModeHTTP is the ingest gateway forwarding to the API over HTTP.
	ModeHTTP = "http"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Order store: postgres, sqlite or memory
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PgURL       string `env:"PG_URL"`
	PgPoolMax   int    `env:"PG_POOL_MAX" envDefault:"10"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"storefront.db"`

	// Webhook processing mode: "sync" (direct) or "kafka" (async via Kafka)
	WebhookMode string `env:"WEBHOOK_MODE" envDefault:"sync"`

	KafkaBrokers             []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrdersTopic         string   `env:"KAFKA_ORDERS_TOPIC" envDefault:"webhooks.orders"`
	KafkaOrdersConsumerGroup string   `env:"KAFKA_ORDERS_CONSUMER_GROUP" envDefault:"storefront-orders"`
	KafkaOrdersDLQTopic      string   `env:"KAFKA_ORDERS_DLQ_TOPIC" envDefault:"webhooks.orders.dlq"`
	KafkaOrdersWorkers       int      `env:"KAFKA_ORDERS_WORKERS" envDefault:"1"`

	// Admin mail; disabled when SMTP_HOST is empty
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	MailFrom     string        `env:"MAIL_FROM"`
	AdminEmail   string        `env:"ADMIN_EMAIL"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`

	NotifyWorkers   int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueueSize int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`

	// Search projection; disabled when OPENSEARCH_URLS is empty
	OpensearchUrls        []string `env:"OPENSEARCH_URLS" envSeparator:","`
	OpensearchIndexOrders string   `env:"OPENSEARCH_INDEX_ORDERS" envDefault:"orders"`
}

func New() (Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{StorePostgres, StoreSQLite, StoreMemory}, c.StoreDriver) {
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unsupported value %q", c.StoreDriver))
	}
	if c.StoreDriver == StorePostgres && c.PgURL == "" {
		errs = append(errs, errors.New("PG_URL: required for the postgres store"))
	}
	if c.StoreDriver == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH: required for the sqlite store"))
	}

	switch c.WebhookMode {
	case ModeSync:
	case ModeKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS: required in kafka mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("WEBHOOK_MODE: unsupported value %q", c.WebhookMode))
	}

	if c.SMTPHost != "" {
		if c.MailFrom == "" {
			errs = append(errs, errors.New("MAIL_FROM: required when SMTP_HOST is set"))
		}
		if c.AdminEmail == "" {
			errs = append(errs, errors.New("ADMIN_EMAIL: required when SMTP_HOST is set"))
		}
	}

	return errors.Join(errs...)
}

func (c Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func (c Config) SearchEnabled() bool {
	return len(c.OpensearchUrls) > 0
}

type IngestConfig struct {
	Port            int           `env:"PORT" envDefault:"3001"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// "kafka" publishes to the orders topic, "http" forwards to the API
	WebhookMode string `env:"WEBHOOK_MODE" envDefault:"kafka"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrdersTopic string   `env:"KAFKA_ORDERS_TOPIC" envDefault:"webhooks.orders"`

	APIBaseURL        string        `env:"API_BASE_URL" envDefault:"http://localhost:3000"`
	APITimeout        time.Duration `env:"API_TIMEOUT" envDefault:"5s"`
	APIRetryAttempts  int           `env:"API_RETRY_ATTEMPTS" envDefault:"3"`
	APIRetryBaseDelay time.Duration `env:"API_RETRY_BASE_DELAY" envDefault:"100ms"`
	APIRetryMaxDelay  time.Duration `env:"API_RETRY_MAX_DELAY" envDefault:"2s"`
}

func NewIngestConfig() (IngestConfig, error) {
	c, err := env.ParseAs[IngestConfig]()
	if err != nil {
		return IngestConfig{}, err
	}
	if err := c.Validate(); err != nil {
		return IngestConfig{}, err
	}
	return c, nil
}

func (c IngestConfig) Validate() error {
	switch c.WebhookMode {
	case ModeKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS: required in kafka mode")
		}
	case ModeHTTP:
		if c.APIBaseURL == "" {
			return errors.New("API_BASE_URL: required in http mode")
		}
	default:
		return fmt.Errorf("WEBHOOK_MODE: unsupported value %q for ingest", c.WebhookMode)
	}
	return nil
}
