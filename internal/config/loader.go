package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies XOBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known XOBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. Per-chain entries have no env form; they live in the file.
func applyEnvOverrides(cfg *Config) {
	// --- Wallet ---
	setStr(&cfg.Wallet.PrivateKey, "XOBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "XOBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "XOBOT_WALLET_KEY_PASSWORD")

	// --- Chain selection ---
	setUint64(&cfg.DefaultChainID, "XOBOT_DEFAULT_CHAIN_ID")

	// --- Indexer ---
	setStr(&cfg.Indexer.BaseURL, "XOBOT_INDEXER_BASE_URL")

	// --- Tx ---
	setDuration(&cfg.Tx.ConfirmTimeout, "XOBOT_TX_CONFIRM_TIMEOUT")

	// --- Aggregator ---
	setDuration(&cfg.Aggregator.SyncInterval, "XOBOT_AGGREGATOR_SYNC_INTERVAL")
	setDuration(&cfg.Aggregator.SnapshotInterval, "XOBOT_AGGREGATOR_SNAPSHOT_INTERVAL")
	setInt(&cfg.Aggregator.ListLimit, "XOBOT_AGGREGATOR_LIST_LIMIT")

	// --- Reconciler ---
	setDuration(&cfg.Reconciler.Interval, "XOBOT_RECONCILER_INTERVAL")
	setInt(&cfg.Reconciler.MaxAttempts, "XOBOT_RECONCILER_MAX_ATTEMPTS")

	// --- Postgres ---
	setStr(&cfg.Postgres.DSN, "XOBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "XOBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "XOBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "XOBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "XOBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "XOBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "XOBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "XOBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "XOBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "XOBOT_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setStr(&cfg.Redis.Addr, "XOBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "XOBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "XOBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "XOBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "XOBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "XOBOT_REDIS_TLS_ENABLED")

	// --- S3 ---
	setBool(&cfg.S3.Enabled, "XOBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "XOBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "XOBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "XOBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "XOBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "XOBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "XOBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "XOBOT_S3_FORCE_PATH_STYLE")

	// --- Server ---
	setBool(&cfg.Server.Enabled, "XOBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "XOBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "XOBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "XOBOT_SERVER_API_KEY")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "XOBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "XOBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "XOBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "XOBOT_NOTIFY_EVENTS")

	// --- Top-level ---
	setStr(&cfg.Mode, "XOBOT_MODE")
	setStr(&cfg.LogLevel, "XOBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
