package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rossmann/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // keep a developer .env out of the test

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rossmann", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "fail", cfg.Features.BinOverflow)
	assert.Equal(t, 10*time.Second, cfg.Model.PredictTimeout)
	assert.Equal(t, "configs/transformers.yaml", cfg.Features.TransformersPath)

	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.ClickHouse.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEATURES_BIN_OVERFLOW", "clamp")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://example.org/telegram/webhook")
	t.Setenv("MODEL_PREDICT_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clamp", cfg.Features.BinOverflow)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Telegram.WebhookMode())
	assert.Equal(t, 250*time.Millisecond, cfg.Model.PredictTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("overflow policy", func(t *testing.T) {
		t.Setenv("FEATURES_BIN_OVERFLOW", "wrap")
		_, err := Load()
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})

	t.Run("sentry without dsn", func(t *testing.T) {
		t.Setenv("ERROR_TRACKING_ENABLED", "true")
		_, err := Load()
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "rossmann", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rossmann sslmode=disable", c.DSN())
}
