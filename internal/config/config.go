// Package config defines the top-level configuration for limitbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LIMITBOT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Limitless LimitlessConfig `toml:"limitless"`
	Trading   TradingConfig   `toml:"trading"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Retention RetentionConfig `toml:"retention"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// LimitlessConfig holds Limitless exchange endpoints and chain parameters.
type LimitlessConfig struct {
	APIHost string `toml:"api_host"`
	WSHost  string `toml:"ws_host"`
	ChainID int64  `toml:"chain_id"`
}

// TradingConfig holds order construction defaults.
type TradingConfig struct {
	// SignatureType is 0 (EOA), 1 (proxy), or 2 (Gnosis Safe).
	SignatureType int   `toml:"signature_type"`
	FeeRateBps    int64 `toml:"fee_rate_bps"`
	// RateLimitPerSec caps order submissions per second; 0 disables the
	// shared rate limiter.
	RateLimitPerSec int `toml:"rate_limit_per_sec"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the shared caches.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for audit archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RetentionConfig controls the audit archive-then-delete sweep.
type RetentionConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	// RetainDays is how long audit rows stay in Postgres before being
	// archived to object storage.
	RetainDays int `toml:"retain_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Limitless: LimitlessConfig{
			APIHost: "https://api.limitless.exchange",
			WSHost:  "wss://ws.limitless.exchange/feed",
			ChainID: 8453, // Base mainnet
		},
		Trading: TradingConfig{
			SignatureType:   0,
			FeeRateBps:      0,
			RateLimitPerSec: 10,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "limitbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "limitbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Retention: RetentionConfig{
			Enabled:    false,
			Interval:   duration{24 * time.Hour},
			RetainDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"order.submitted", "order.matched", "order.rejected", "audit.archived"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"markets": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, markets)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet: a credential source is required for trading.
	if strings.ToLower(c.Mode) == "trade" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode trade")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Limitless endpoints
	if c.Limitless.APIHost == "" {
		errs = append(errs, "limitless: api_host must not be empty")
	}
	if c.Limitless.ChainID <= 0 {
		errs = append(errs, "limitless: chain_id must be positive")
	}

	// Trading
	if c.Trading.SignatureType < 0 || c.Trading.SignatureType > 2 {
		errs = append(errs, fmt.Sprintf("trading: signature_type must be 0 (EOA), 1 (proxy), or 2 (Safe), got %d", c.Trading.SignatureType))
	}
	if c.Trading.FeeRateBps < 0 {
		errs = append(errs, "trading: fee_rate_bps must not be negative")
	}
	if c.Trading.RateLimitPerSec < 0 {
		errs = append(errs, "trading: rate_limit_per_sec must not be negative")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Retention needs both the archive target and the audit source.
	if c.Retention.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "retention: requires s3.enabled")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "retention: requires postgres.enabled")
		}
		if c.Retention.RetainDays < 1 {
			errs = append(errs, "retention: retain_days must be >= 1")
		}
		if c.Retention.Interval.Duration <= 0 {
			errs = append(errs, "retention: interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
