// Package indexer implements the blockchain-event ingestion pipeline: it polls
// the chain node for new blocks, decodes the trading engine's events, mirrors
// them into the relational store, and publishes real-time updates on the bus.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lumenfi/perpindex/internal/chain"
	"github.com/lumenfi/perpindex/internal/domain"
)

// RangeArchiver receives the raw logs of every successfully processed block
// range for cold storage. Archival is best-effort and never blocks the
// checkpoint.
type RangeArchiver interface {
	ArchiveRange(ctx context.Context, fromBlock, toBlock uint64, logs []types.Log) error
}

// Config holds the indexer's polling parameters.
type Config struct {
	// EngineAddress is the contract whose logs are ingested. When nil the
	// indexer only tracks the chain head, advancing its checkpoint without
	// fetching logs.
	EngineAddress *common.Address

	// StartBlock is the height to resume from when no checkpoint exists.
	StartBlock uint64

	// PollInterval is the delay between polling cycles. Node errors are
	// retried on the next tick at this fixed interval, with no backoff:
	// a deliberate choice matching the original mirror's behavior.
	PollInterval time.Duration
}

// Indexer is the chain poller. It runs a single sequential loop; logs within
// one range are processed strictly in the node-returned order, which handlers
// rely on for causally dependent events. Only one range is in flight at a
// time, so the effective interval is poll interval plus processing time.
type Indexer struct {
	node        chain.NodeClient
	checkpoints domain.CheckpointStore
	dispatcher  *Dispatcher
	archiver    RangeArchiver // may be nil
	cfg         Config
	logger      *slog.Logger
}

// New creates an Indexer. archiver may be nil to disable raw-log archival.
func New(
	node chain.NodeClient,
	checkpoints domain.CheckpointStore,
	dispatcher *Dispatcher,
	archiver RangeArchiver,
	cfg Config,
	logger *slog.Logger,
) *Indexer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Indexer{
		node:        node,
		checkpoints: checkpoints,
		dispatcher:  dispatcher,
		archiver:    archiver,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run executes the polling loop until the context is cancelled. The current
// cycle always completes before Run returns, keeping the checkpoint invariant
// intact. Cycle errors are logged and retried on the next tick; none are
// fatal.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.logger.Info("indexer starting",
		slog.Uint64("start_block", ix.cfg.StartBlock),
		slog.Duration("poll_interval", ix.cfg.PollInterval),
	)

	// Run immediately on start.
	if err := ix.cycle(ctx); err != nil {
		ix.logger.Error("indexer cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(ix.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("indexer stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := ix.cycle(ctx); err != nil {
				ix.logger.Error("indexer cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// cycle processes at most one block range. The checkpoint advances to the
// range head only after every log in the range was handled successfully, so a
// failed range is retried in full on the next cycle.
func (ix *Indexer) cycle(ctx context.Context) error {
	head, err := ix.node.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("indexer: chain head: %w", err)
	}

	checkpoint, err := ix.checkpoints.Get(ctx)
	if err != nil {
		return fmt.Errorf("indexer: read checkpoint: %w", err)
	}
	if checkpoint == 0 && ix.cfg.StartBlock > 0 {
		checkpoint = ix.cfg.StartBlock
	}

	if head <= checkpoint {
		return nil
	}
	from, to := checkpoint+1, head

	// No engine contract configured: ingestion is disabled, but the
	// checkpoint still tracks the head so a later deploy starts fresh.
	if ix.cfg.EngineAddress == nil {
		if err := ix.checkpoints.Set(ctx, to); err != nil {
			return fmt.Errorf("indexer: advance checkpoint: %w", err)
		}
		return nil
	}

	logs, err := ix.node.FilterLogs(ctx, *ix.cfg.EngineAddress, from, to)
	if err != nil {
		return fmt.Errorf("indexer: fetch logs %d-%d: %w", from, to, err)
	}

	if len(logs) > 0 {
		ix.logger.Info("processing block range",
			slog.Uint64("from", from),
			slog.Uint64("to", to),
			slog.Int("logs", len(logs)),
		)
	}

	failed := 0
	for _, lg := range logs {
		if err := ix.dispatcher.Dispatch(ctx, lg); err != nil {
			failed++
			ix.logger.Error("event handler failed",
				slog.String("tx_hash", lg.TxHash.Hex()),
				slog.Uint64("log_index", uint64(lg.Index)),
				slog.String("error", err.Error()),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("indexer: %d of %d logs failed in range %d-%d, checkpoint not advanced", failed, len(logs), from, to)
	}

	if ix.archiver != nil && len(logs) > 0 {
		if err := ix.archiver.ArchiveRange(ctx, from, to, logs); err != nil {
			ix.logger.Warn("raw log archive failed",
				slog.Uint64("from", from),
				slog.Uint64("to", to),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := ix.checkpoints.Set(ctx, to); err != nil {
		return fmt.Errorf("indexer: advance checkpoint to %d: %w", to, err)
	}
	return nil
}
