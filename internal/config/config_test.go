package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.limitless.exchange", cfg.Limitless.APIHost)
	assert.Equal(t, int64(8453), cfg.Limitless.ChainID)
	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Interval.Duration)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "monitor"
log_level = "debug"

[limitless]
chain_id = 84532

[retention]
enabled = false
interval = "6h"
retain_days = 30
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("LIMITBOT_LIMITLESS_API_HOST", "https://staging.limitless.exchange")
	t.Setenv("LIMITBOT_REDIS_ENABLED", "true")
	t.Setenv("LIMITBOT_NOTIFY_EVENTS", "order.submitted, order.rejected")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File beats defaults.
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, int64(84532), cfg.Limitless.ChainID)
	assert.Equal(t, 6*time.Hour, cfg.Retention.Interval.Duration)

	// Env beats file.
	assert.Equal(t, "https://staging.limitless.exchange", cfg.Limitless.APIHost)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"order.submitted", "order.rejected"}, cfg.Notify.Events)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.LogLevel = "loud"
	cfg.Limitless.ChainID = 0
	cfg.Trading.SignatureType = 5
	cfg.Retention.Enabled = true
	cfg.Retention.RetainDays = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "yolo"`)
	assert.Contains(t, err.Error(), `unknown log_level "loud"`)
	assert.Contains(t, err.Error(), "chain_id must be positive")
	assert.Contains(t, err.Error(), "signature_type must be 0")
	assert.Contains(t, err.Error(), "retention: requires s3.enabled")
	assert.Contains(t, err.Error(), "retain_days must be >= 1")
}

func TestValidateTradeModeRequiresKey(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Wallet.PrivateKey = "0xabc"
	assert.NoError(t, cfg.Validate())

	cfg.Mode = "monitor"
	cfg.Wallet.PrivateKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "r3d15"
	cfg.S3.SecretKey = "sekret"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original is untouched, and the events slice is decoupled.
	assert.Equal(t, "0xdeadbeef", cfg.Wallet.PrivateKey)
	red.Notify.Events[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Notify.Events[0])
}
