package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfi/perpindex/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Orders are created
// by the REST layer; this store only reads them and marks them filled when the
// matching TradeExecuted event arrives.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderCols = `id, order_id, market_id, position_id, user_address,
	side, type, size::text, price::text, leverage,
	COALESCE(filled_size::text, '0'), avg_fill_price::text, COALESCE(fee::text, '0'),
	status, created_at, updated_at, expires_at`

// GetByOrderID retrieves an order by its on-chain id.
func (s *OrderStore) GetByOrderID(ctx context.Context, orderID string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE order_id = $1`, orderID)

	var o domain.Order
	var side, typ, status string
	err := row.Scan(
		&o.ID, &o.OrderID, &o.MarketID, &o.PositionID, &o.UserAddress,
		&side, &typ, &o.Size, &o.Price, &o.Leverage,
		&o.FilledSize, &o.AvgFillPrice, &o.Fee,
		&status, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", orderID, err)
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

// MarkFilled transitions an order to FILLED and records the fill details.
// Idempotent: repeating the update writes the same values.
func (s *OrderStore) MarkFilled(ctx context.Context, orderID, filledSize, avgFillPrice, fee string) error {
	const query = `
		UPDATE orders
		SET status = 'FILLED', filled_size = $2, avg_fill_price = $3, fee = $4,
		    updated_at = NOW()
		WHERE order_id = $1`

	if _, err := s.pool.Exec(ctx, query, orderID, filledSize, avgFillPrice, fee); err != nil {
		return fmt.Errorf("postgres: mark order %s filled: %w", orderID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
