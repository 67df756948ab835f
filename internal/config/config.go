// Package config defines the top-level configuration for the orchestrator
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by XOBOT_* environment variables.
type Config struct {
	Wallet         WalletConfig     `toml:"wallet"`
	Chains         []ChainConfig    `toml:"chains"`
	DefaultChainID uint64           `toml:"default_chain_id"`
	Indexer        IndexerConfig    `toml:"indexer"`
	Tx             TxConfig         `toml:"tx"`
	Aggregator     AggregatorConfig `toml:"aggregator"`
	Reconciler     ReconcilerConfig `toml:"reconciler"`
	Postgres       PostgresConfig   `toml:"postgres"`
	Redis          RedisConfig      `toml:"redis"`
	S3             S3Config         `toml:"s3"`
	Server         ServerConfig     `toml:"server"`
	Notify         NotifyConfig     `toml:"notify"`
	Mode           string           `toml:"mode"`
	LogLevel       string           `toml:"log_level"`
}

// WalletConfig holds the signing wallet credentials. All fields may be empty,
// in which case the orchestrator runs read-only.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig describes one supported chain: its RPC endpoint and the
// deployed contract addresses.
type ChainConfig struct {
	ChainID         uint64 `toml:"chain_id"`
	RPCURL          string `toml:"rpc_url"`
	CollateralToken string `toml:"collateral_token"`
	MarketContract  string `toml:"market_contract"`
}

// IndexerConfig holds the off-chain data service endpoint.
type IndexerConfig struct {
	BaseURL string `toml:"base_url"`
}

// TxConfig holds transaction submission parameters.
type TxConfig struct {
	ConfirmTimeout duration `toml:"confirm_timeout"`
}

// AggregatorConfig holds market view sync parameters.
type AggregatorConfig struct {
	SyncInterval     duration `toml:"sync_interval"`
	SnapshotInterval duration `toml:"snapshot_interval"`
	ListLimit        int      `toml:"list_limit"`
}

// ReconcilerConfig holds pending-schedule retry parameters.
type ReconcilerConfig struct {
	Interval    duration `toml:"interval"`
	MaxAttempts int      `toml:"max_attempts"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshots.
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// XO testnet parameters, the default deployment target.
const (
	xoTestnetChainID = 123420001402
	xoTestnetRPC     = "https://rpc.xo-testnet.t.raas.gelato.cloud"
)

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chains: []ChainConfig{
			{
				ChainID: xoTestnetChainID,
				RPCURL:  xoTestnetRPC,
			},
		},
		DefaultChainID: xoTestnetChainID,
		Indexer: IndexerConfig{
			BaseURL: "https://api.xo.market",
		},
		Tx: TxConfig{
			ConfirmTimeout: duration{90 * time.Second},
		},
		Aggregator: AggregatorConfig{
			SyncInterval:     duration{30 * time.Second},
			SnapshotInterval: duration{time.Hour},
			ListLimit:        20,
		},
		Reconciler: ReconcilerConfig{
			Interval:    duration{time.Minute},
			MaxAttempts: 10,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
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
			Bucket:         "xobot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"serve": true,
	"sync":  true,
	"full":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency and returns a
// single error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sync, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is optional, but an encrypted key file needs its password.
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Chains
	if len(c.Chains) == 0 {
		errs = append(errs, "chains: at least one chain must be configured")
	}
	seen := make(map[uint64]bool, len(c.Chains))
	defaultKnown := false
	for i, chain := range c.Chains {
		if chain.ChainID == 0 {
			errs = append(errs, fmt.Sprintf("chains[%d]: chain_id must be positive", i))
		}
		if chain.RPCURL == "" {
			errs = append(errs, fmt.Sprintf("chains[%d]: rpc_url must not be empty", i))
		}
		if seen[chain.ChainID] {
			errs = append(errs, fmt.Sprintf("chains[%d]: duplicate chain_id %d", i, chain.ChainID))
		}
		seen[chain.ChainID] = true
		if chain.ChainID == c.DefaultChainID {
			defaultKnown = true
		}
	}
	if c.DefaultChainID == 0 {
		errs = append(errs, "default_chain_id must be set")
	} else if len(c.Chains) > 0 && !defaultKnown {
		errs = append(errs, fmt.Sprintf("default_chain_id %d has no matching [[chains]] entry", c.DefaultChainID))
	}

	// Indexer
	if c.Indexer.BaseURL == "" {
		errs = append(errs, "indexer: base_url must not be empty")
	}

	// Tx
	if c.Tx.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "tx: confirm_timeout must be positive")
	}

	// Aggregator
	if c.Aggregator.SyncInterval.Duration <= 0 {
		errs = append(errs, "aggregator: sync_interval must be positive")
	}
	if c.Aggregator.ListLimit < 1 {
		errs = append(errs, "aggregator: list_limit must be >= 1")
	}

	// Reconciler
	if c.Reconciler.Interval.Duration <= 0 {
		errs = append(errs, "reconciler: interval must be positive")
	}
	if c.Reconciler.MaxAttempts < 1 {
		errs = append(errs, "reconciler: max_attempts must be >= 1")
	}

	// Postgres
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

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 only matters when snapshots are on.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.Aggregator.SnapshotInterval.Duration <= 0 {
			errs = append(errs, "aggregator: snapshot_interval must be positive when s3 is enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ChainByID returns the chain entry for id, if configured.
func (c *Config) ChainByID(id uint64) (ChainConfig, bool) {
	for _, chain := range c.Chains {
		if chain.ChainID == id {
			return chain, true
		}
	}
	return ChainConfig{}, false
}
