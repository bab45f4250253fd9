package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists mirrored markets.
type MarketStore interface {
	Insert(ctx context.Context, m Market) error
	GetByMarketID(ctx context.Context, marketID string) (Market, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists mirrored positions. The ingestion core is the sole
// writer.
type PositionStore interface {
	Insert(ctx context.Context, p Position) error
	Close(ctx context.Context, positionID, realizedPnl string, closedAt time.Time) error
	Liquidate(ctx context.Context, positionID string, closedAt time.Time) error
	GetByPositionID(ctx context.Context, positionID string) (Position, error)
	ListOpen(ctx context.Context, userAddress string) ([]Position, error)
}

// OrderStore reads and updates orders created by the REST layer. The ingestion
// core only marks them filled.
type OrderStore interface {
	GetByOrderID(ctx context.Context, orderID string) (Order, error)
	MarkFilled(ctx context.Context, orderID, filledSize, avgFillPrice, fee string) error
}

// TradeStore persists executed fills. Insert must be idempotent on
// (TxHash, LogIndex).
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
}

// CheckpointStore persists the last fully processed block height. Get returns
// 0 when no checkpoint has been written yet. The indexer is the only writer,
// by construction.
type CheckpointStore interface {
	Get(ctx context.Context) (uint64, error)
	Set(ctx context.Context, height uint64) error
}
