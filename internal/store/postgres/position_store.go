package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfi/perpindex/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection
// pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `id, position_id, market_id, user_address, side,
	size::text, entry_price::text, margin::text, leverage, COALESCE(liquidation_price::text, ''),
	COALESCE(unrealized_pnl::text, '0'), COALESCE(realized_pnl::text, '0'),
	status, opened_at, closed_at`

// Insert creates a new OPEN position row. Replaying the same PositionOpened
// event is a no-op thanks to ON CONFLICT DO NOTHING on the on-chain position
// id.
func (s *PositionStore) Insert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			position_id, market_id, user_address, side,
			size, entry_price, margin, leverage, liquidation_price, status
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (position_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID, p.MarketID, p.UserAddress, string(p.Side),
		p.Size, p.EntryPrice, p.Margin, p.Leverage, p.LiquidationPrice, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert position %s: %w", p.PositionID, err)
	}
	return nil
}

// Close marks a position CLOSED and records its realized PnL. The status
// predicate keeps the OPEN -> CLOSED transition one-way: a closed or
// liquidated position is never reverted.
func (s *PositionStore) Close(ctx context.Context, positionID, realizedPnl string, closedAt time.Time) error {
	const query = `
		UPDATE positions
		SET status = 'CLOSED', realized_pnl = $2, closed_at = $3
		WHERE position_id = $1 AND status = 'OPEN'`

	if _, err := s.pool.Exec(ctx, query, positionID, realizedPnl, closedAt); err != nil {
		return fmt.Errorf("postgres: close position %s: %w", positionID, err)
	}
	return nil
}

// Liquidate marks a position LIQUIDATED. Like Close, the transition only
// applies to OPEN positions.
func (s *PositionStore) Liquidate(ctx context.Context, positionID string, closedAt time.Time) error {
	const query = `
		UPDATE positions
		SET status = 'LIQUIDATED', closed_at = $2
		WHERE position_id = $1 AND status = 'OPEN'`

	if _, err := s.pool.Exec(ctx, query, positionID, closedAt); err != nil {
		return fmt.Errorf("postgres: liquidate position %s: %w", positionID, err)
	}
	return nil
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var side, status string
	err := row.Scan(
		&p.ID, &p.PositionID, &p.MarketID, &p.UserAddress, &side,
		&p.Size, &p.EntryPrice, &p.Margin, &p.Leverage, &p.LiquidationPrice,
		&p.UnrealizedPnl, &p.RealizedPnl,
		&status, &p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Side = domain.Side(side)
	p.Status = domain.PositionStatus(status)
	return p, nil
}

// GetByPositionID retrieves a position by its on-chain id.
func (s *PositionStore) GetByPositionID(ctx context.Context, positionID string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE position_id = $1`, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", positionID, err)
	}
	return p, nil
}

// ListOpen returns all OPEN positions for a trader.
func (s *PositionStore) ListOpen(ctx context.Context, userAddress string) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionCols+` FROM positions
		 WHERE user_address = $1 AND status = 'OPEN'
		 ORDER BY opened_at DESC`, userAddress)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions for %s: %w", userAddress, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan open position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions rows: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
