package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/lumenfi/perpindex/internal/blob/s3"
	"github.com/lumenfi/perpindex/internal/cache/redis"
	"github.com/lumenfi/perpindex/internal/chain"
	"github.com/lumenfi/perpindex/internal/config"
	"github.com/lumenfi/perpindex/internal/domain"
	"github.com/lumenfi/perpindex/internal/indexer"
	"github.com/lumenfi/perpindex/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Markets     domain.MarketStore
	Positions   domain.PositionStore
	Orders      domain.OrderStore
	Trades      domain.TradeStore
	Checkpoints domain.CheckpointStore

	// Pub/sub
	SignalBus domain.SignalBus

	// Chain access
	Node *chain.Client

	// Raw-log archival; nil when no bucket is configured.
	Archiver indexer.RangeArchiver

	// Connectivity handles for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// releases resources in reverse construction order.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Postgres = pgClient
	deps.Markets = postgres.NewMarketStore(pool)
	deps.Positions = postgres.NewPositionStore(pool)
	deps.Orders = postgres.NewOrderStore(pool)
	deps.Trades = postgres.NewTradeStore(pool)
	deps.Checkpoints = postgres.NewCheckpointStore(pool)

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

	deps.Redis = redisClient
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Chain node ---
	node, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain node: %w", err)
	}
	closers = append(closers, node.Close)
	deps.Node = node

	// --- S3 raw-log archive (enabled by setting a bucket) ---
	if cfg.S3.Bucket != "" {
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
		deps.Archiver = s3blob.NewRangeArchiver(s3Client, cfg.Chain.ChainID)
	}

	return deps, cleanup, nil
}

// engineAddress parses the configured engine contract address. Returns nil
// when no address is configured, which disables log ingestion.
func engineAddress(cfg *config.Config) *common.Address {
	if cfg.Chain.EngineAddress == "" {
		return nil
	}
	addr := common.HexToAddress(cfg.Chain.EngineAddress)
	return &addr
}
