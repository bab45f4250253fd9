package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfi/perpindex/internal/domain"
)

// CheckpointStore implements domain.CheckpointStore using a single-row
// indexer_state table. The indexer is the sole writer, by construction, so no
// row locking is needed.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

// NewCheckpointStore creates a new CheckpointStore backed by the given
// connection pool.
func NewCheckpointStore(pool *pgxpool.Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Get returns the last fully processed block height, or 0 when no checkpoint
// has been written yet.
func (s *CheckpointStore) Get(ctx context.Context) (uint64, error) {
	var height int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_processed_block FROM indexer_state WHERE id = 1`,
	).Scan(&height)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: get checkpoint: %w", err)
	}
	return uint64(height), nil
}

// Set advances the checkpoint in one atomic insert-or-update.
func (s *CheckpointStore) Set(ctx context.Context, height uint64) error {
	const query = `
		INSERT INTO indexer_state (id, last_processed_block, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_processed_block = EXCLUDED.last_processed_block,
			updated_at           = NOW()`

	if _, err := s.pool.Exec(ctx, query, int64(height)); err != nil {
		return fmt.Errorf("postgres: set checkpoint %d: %w", height, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CheckpointStore = (*CheckpointStore)(nil)
