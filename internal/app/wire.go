package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/xo-market/xobot/internal/blob/s3"
	"github.com/xo-market/xobot/internal/cache/redis"
	"github.com/xo-market/xobot/internal/chain"
	"github.com/xo-market/xobot/internal/config"
	"github.com/xo-market/xobot/internal/crypto"
	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/notify"
	"github.com/xo-market/xobot/internal/platform/indexer"
	"github.com/xo-market/xobot/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Chain access
	Resolver *chain.Resolver
	Gateway  *chain.Gateway
	Executor *chain.Executor
	Guard    *chain.AllowanceGuard

	// Off-chain data service
	Indexer *indexer.Client

	// Persistence
	ScheduleStore domain.ScheduleStore
	ViewCache     domain.ViewCache
	BlobWriter    domain.BlobWriter

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that run the schedule reconciler.
func needsPostgres(mode string) bool {
	switch mode {
	case "sync", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signing key (optional; absent means read-only operation) ---
	keyHex := ""
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		loaded, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load wallet key: %w", err)
		}
		keyHex = loaded
	}

	// --- Chain resolver and contract gateway ---
	endpoints := make([]chain.Endpoint, 0, len(cfg.Chains))
	addresses := make(map[uint64]map[chain.ContractKey]common.Address, len(cfg.Chains))
	for _, cc := range cfg.Chains {
		endpoints = append(endpoints, chain.Endpoint{
			ChainID: cc.ChainID,
			RPCURL:  cc.RPCURL,
		})
		book := make(map[chain.ContractKey]common.Address, 2)
		if common.IsHexAddress(cc.CollateralToken) {
			book[chain.ContractCollateralToken] = common.HexToAddress(cc.CollateralToken)
		}
		if common.IsHexAddress(cc.MarketContract) {
			book[chain.ContractMultiOutcomeMarket] = common.HexToAddress(cc.MarketContract)
		}
		addresses[cc.ChainID] = book
	}

	resolver, err := chain.NewResolver(endpoints, keyHex, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain resolver: %w", err)
	}
	deps.Resolver = resolver
	deps.Gateway = chain.NewGateway(addresses)
	deps.Executor = chain.NewExecutor(cfg.Tx.ConfirmTimeout.Duration, logger)
	deps.Guard = chain.NewAllowanceGuard(deps.Executor, logger)

	// --- Indexer API client ---
	deps.Indexer = indexer.New(cfg.Indexer.BaseURL)

	// --- PostgreSQL (only for modes that need the reconciliation queue) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.ScheduleStore = postgres.NewScheduleStore(pgClient.Pool())
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.ViewCache = redis.NewViewCache(redisClient)

	// --- S3 blob storage (optional snapshot target) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
