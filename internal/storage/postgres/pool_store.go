package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a pool. Returns ErrDuplicateKey if the base mint already has a pool.
func (s *PoolStore) Insert(ctx context.Context, p *domain.PoolRecord) error {
	if p == nil || p.ID == "" || p.BaseMint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (base_mint, pool_id, quote_mint, state, discovered_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, p.BaseMint, p.ID, p.QuoteMint, p.State, p.DiscoveredAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByMint retrieves the pool for a base mint. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByMint(ctx context.Context, mint string) (*domain.PoolRecord, error) {
	query := `
		SELECT pool_id, base_mint, quote_mint, state, discovered_at
		FROM pools
		WHERE base_mint = $1
	`

	var p domain.PoolRecord
	err := s.pool.QueryRow(ctx, query, mint).Scan(&p.ID, &p.BaseMint, &p.QuoteMint, &p.State, &p.DiscoveredAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by mint: %w", err)
	}
	return &p, nil
}

// Count returns the number of stored pools.
func (s *PoolStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM pools`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pools: %w", err)
	}
	return n, nil
}
