package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfi/perpindex/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert appends one fill. Duplicate fills for the same (tx_hash, log_index)
// are silently skipped via ON CONFLICT DO NOTHING, which makes re-ingesting a
// block range after a partial failure safe.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			tx_hash, block_number, log_index, market_id,
			user_address, side, size, price, fee, executed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.TxHash, t.BlockNumber, t.LogIndex, t.MarketID,
		t.UserAddress, string(t.Side), t.Size, t.Price, t.Fee, t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s#%d: %w", t.TxHash, t.LogIndex, err)
	}
	return nil
}

// ListByMarket returns fills for one market, newest first.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `
		SELECT id, tx_hash, block_number, log_index, market_id,
		       user_address, side, size::text, price::text, fee::text, executed_at
		FROM trades WHERE market_id = $1
		ORDER BY executed_at DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(
			&t.ID, &t.TxHash, &t.BlockNumber, &t.LogIndex, &t.MarketID,
			&t.UserAddress, &side, &t.Size, &t.Price, &t.Fee, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
