package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfi/perpindex/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, market_id, name, COALESCE(description, ''), base_asset, quote_asset,
	max_leverage, k_value::text, base_reserve::text, quote_reserve::text,
	maintenance_margin::text, taker_fee::text, maker_fee::text,
	is_active, created_at, updated_at`

// Insert creates a new market row. Replaying the same MarketCreated event is a
// no-op thanks to ON CONFLICT DO NOTHING on the on-chain market id.
func (s *MarketStore) Insert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			market_id, name, base_asset, quote_asset,
			max_leverage, k_value, base_reserve, quote_reserve, is_active
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
		ON CONFLICT (market_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		m.MarketID, m.Name, m.BaseAsset, m.QuoteAsset,
		m.MaxLeverage, m.KValue, m.BaseReserve, m.QuoteReserve, m.IsActive,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert market %s: %w", m.MarketID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.MarketID, &m.Name, &m.Description, &m.BaseAsset, &m.QuoteAsset,
		&m.MaxLeverage, &m.KValue, &m.BaseReserve, &m.QuoteReserve,
		&m.MaintenanceMargin, &m.TakerFee, &m.MakerFee,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// GetByMarketID retrieves a market by its on-chain id.
func (s *MarketStore) GetByMarketID(ctx context.Context, marketID string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE market_id = $1`, marketID)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", marketID, err)
	}
	return m, nil
}

// ListActive returns active markets with pagination.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE is_active ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan active market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
