package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"DB_HOST", "DB_PORT", "APP_PORT", "KAFKA_BROKERS", "APP_REFRESH_PAUSE", "OUTBOX_BATCH_SIZE"} {
		t.Setenv(k, "")
	}
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, time.Second, cfg.RefreshPause)
	assert.Equal(t, 20, cfg.OutboxBatchSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "UTC", cfg.Timezone.String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("POSTGRES_DB", "retur_test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Contains(t, cfg.DSN(), "host=db.internal port=6432")
	assert.Contains(t, cfg.DSN(), "dbname=retur_test")
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")

	t.Run("port", func(t *testing.T) {
		t.Setenv("DB_PORT", "five")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DB_PORT")
	})

	t.Run("timezone", func(t *testing.T) {
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "APP_TIMEZONE")
	})

	t.Run("pause", func(t *testing.T) {
		t.Setenv("APP_REFRESH_PAUSE", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "APP_REFRESH_PAUSE")
	})

	for _, tc := range []struct {
		name, key, value string
	}{
		{"zero poll interval", "OUTBOX_POLL_INTERVAL", "0s"},
		{"negative poll interval", "OUTBOX_POLL_INTERVAL", "-1s"},
		{"zero batch size", "OUTBOX_BATCH_SIZE", "0"},
		{"negative batch size", "OUTBOX_BATCH_SIZE", "-5"},
		{"zero max attempts", "OUTBOX_MAX_ATTEMPTS", "0"},
		{"negative pause", "APP_REFRESH_PAUSE", "-1s"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, tc.key)
		})
	}
}
