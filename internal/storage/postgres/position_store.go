package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// Decimal columns travel as text so no precision is lost in either direction.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Upsert inserts or replaces the position for its mint.
func (s *PositionStore) Upsert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (mint, pool_id, opened_at, cost_basis, min_acquired_amount, name, symbol)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		ON CONFLICT (mint) DO UPDATE SET
			pool_id = EXCLUDED.pool_id,
			opened_at = EXCLUDED.opened_at,
			cost_basis = EXCLUDED.cost_basis,
			min_acquired_amount = EXCLUDED.min_acquired_amount,
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol
	`

	_, err := s.pool.Exec(ctx, query,
		p.Mint, p.PoolID, p.OpenedAt.UTC(),
		p.CostBasis.String(), p.MinAcquiredAmount.String(),
		p.Name, p.Symbol,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// Delete removes the position for mint.
func (s *PositionStore) Delete(ctx context.Context, mint string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE mint = $1`, mint); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

// GetByMint retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) (*domain.Position, error) {
	query := `
		SELECT mint, pool_id, opened_at, cost_basis::text, min_acquired_amount::text, name, symbol
		FROM positions
		WHERE mint = $1
	`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by mint: %w", err)
	}
	return p, nil
}

// GetAll retrieves all positions ordered by opened_at ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT mint, pool_id, opened_at, cost_basis::text, min_acquired_amount::text, name, symbol
		FROM positions
		ORDER BY opened_at ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return result, nil
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var (
		p                 domain.Position
		cost, minAcquired string
	)
	if err := row.Scan(&p.Mint, &p.PoolID, &p.OpenedAt, &cost, &minAcquired, &p.Name, &p.Symbol); err != nil {
		return nil, err
	}

	var err error
	if p.CostBasis, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse cost_basis: %w", err)
	}
	if p.MinAcquiredAmount, err = decimal.NewFromString(minAcquired); err != nil {
		return nil, fmt.Errorf("parse min_acquired_amount: %w", err)
	}
	return &p, nil
}
