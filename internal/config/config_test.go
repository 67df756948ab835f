package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "full", cfg.Mode)
	require.Equal(t, uint64(xoTestnetChainID), cfg.DefaultChainID)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Chains = nil
	cfg.DefaultChainID = 0
	cfg.Indexer.BaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"unknown mode", "unknown log_level", "at least one chain", "default_chain_id", "base_url"} {
		require.Contains(t, msg, want)
	}
}

func TestValidateDefaultChainMustBeConfigured(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultChainID = 555
	require.ErrorContains(t, cfg.Validate(), "no matching")
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.json"
	require.ErrorContains(t, cfg.Validate(), "key_password")

	cfg.Wallet.KeyPassword = "secret"
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "sync"
log_level = "debug"

[tx]
confirm_timeout = "2m"

[[chains]]
chain_id = 31337
rpc_url = "http://localhost:8545"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sync", cfg.Mode)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2*time.Minute, cfg.Tx.ConfirmTimeout.Duration)
	// The [[chains]] block replaces the default chain list.
	require.Len(t, cfg.Chains, 1)
	require.Equal(t, uint64(31337), cfg.Chains[0].ChainID)
	// Untouched sections keep their defaults.
	require.Equal(t, "https://api.xo.market", cfg.Indexer.BaseURL)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "full"`), 0o600))

	t.Setenv("XOBOT_MODE", "serve")
	t.Setenv("XOBOT_INDEXER_BASE_URL", "http://indexer.local")
	t.Setenv("XOBOT_SERVER_API_KEY", "sekrit")
	t.Setenv("XOBOT_DEFAULT_CHAIN_ID", "31337")
	t.Setenv("XOBOT_RECONCILER_INTERVAL", "5m")
	t.Setenv("XOBOT_SERVER_CORS_ORIGINS", "http://a.local,http://b.local")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "serve", cfg.Mode)
	require.Equal(t, "http://indexer.local", cfg.Indexer.BaseURL)
	require.Equal(t, "sekrit", cfg.Server.APIKey)
	require.Equal(t, uint64(31337), cfg.DefaultChainID)
	require.Equal(t, 5*time.Minute, cfg.Reconciler.Interval.Duration)
	require.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "rpass"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	require.NotContains(t, red.Wallet.PrivateKey, "deadbeef")
	require.NotContains(t, red.Postgres.Password, "pgpass")
	require.NotContains(t, red.Redis.Password, "rpass")
	require.NotContains(t, red.Server.APIKey, "key")
	require.NotContains(t, red.Notify.TelegramToken, "tok")
}

func TestChainByID(t *testing.T) {
	cfg := Defaults()
	chain, ok := cfg.ChainByID(xoTestnetChainID)
	require.True(t, ok)
	require.Equal(t, xoTestnetRPC, chain.RPCURL)

	_, ok = cfg.ChainByID(1)
	require.False(t, ok)
}
