package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"rossmann/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Model         ModelConfig
	Features      FeaturesConfig
	Dataset       DatasetConfig
	Outlook       OutlookConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"rossmann"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
	MaxBodyBytes    int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"10485760"`
}

type ModelConfig struct {
	Path           string        `envconfig:"MODEL_PATH" default:"models/rossmann_sales.onnx"`
	LibraryPath    string        `envconfig:"ONNXRUNTIME_LIB"`
	InputName      string        `envconfig:"MODEL_INPUT_NAME" default:"input"`
	OutputName     string        `envconfig:"MODEL_OUTPUT_NAME" default:"variable"`
	PredictTimeout time.Duration `envconfig:"MODEL_PREDICT_TIMEOUT" default:"10s"`
}

type FeaturesConfig struct {
	TransformersPath string `envconfig:"TRANSFORMERS_PATH" default:"configs/transformers.yaml"`
	BinOverflow      string `envconfig:"FEATURES_BIN_OVERFLOW" default:"fail"` // fail|clamp
}

// DatasetConfig points at the Kaggle files used as store-day source when
// Postgres is not configured.
type DatasetConfig struct {
	TestPath  string `envconfig:"DATASET_TEST_PATH" default:"data/test.csv"`
	StorePath string `envconfig:"DATASET_STORE_PATH" default:"data/store.csv"`
}

type OutlookConfig struct {
	CacheTTL     time.Duration `envconfig:"OUTLOOK_CACHE_TTL" default:"6h"`
	WarmInterval time.Duration `envconfig:"OUTLOOK_WARM_INTERVAL" default:"0s"` // 0 disables the cache warmer
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"rossmann"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"rossmann"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host          string        `envconfig:"CLICKHOUSE_HOST"`
	Port          int           `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User          string        `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password      string        `envconfig:"CLICKHOUSE_PASSWORD"`
	Database      string        `envconfig:"CLICKHOUSE_DB" default:"rossmann"`
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"500"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"5s"`
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers         []string `envconfig:"KAFKA_BROKERS"`
	Async           bool     `envconfig:"KAFKA_ASYNC" default:"false"`
	GroupID         string   `envconfig:"KAFKA_GROUP_ID" default:"rossmann-predict"`
	ConsumeRequests bool     `envconfig:"KAFKA_CONSUME_REQUESTS" default:"false"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type TelegramConfig struct {
	BotToken       string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookURL     string        `envconfig:"TELEGRAM_WEBHOOK_URL"`
	Debug          bool          `envconfig:"TELEGRAM_DEBUG" default:"false"`
	ReplyTimeout   time.Duration `envconfig:"TELEGRAM_REPLY_TIMEOUT" default:"30s"`
	RateLimitRate  int           `envconfig:"TELEGRAM_RATE_LIMIT" default:"20"`
	RateLimitBurst int           `envconfig:"TELEGRAM_RATE_BURST" default:"30"`
}

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" }

// WebhookMode reports whether updates arrive through the HTTP webhook
// instead of long polling.
func (c TelegramConfig) WebhookMode() bool { return c.WebhookURL != "" }

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	switch c.Features.BinOverflow {
	case "fail", "clamp":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "FEATURES_BIN_OVERFLOW must be fail or clamp, got %q", c.Features.BinOverflow)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "HTTP_MAX_BODY_BYTES must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.Provider == "sentry" && c.ErrorTracking.SentryDSN == "" {
		return errors.Wrap(errors.ErrInvalidInput, "SENTRY_DSN is required when error tracking is enabled")
	}
	return nil
}
