package storage

import (
	"context"

	"solana-sniper/internal/domain"
)

// PoolStore caches discovered pools by base mint for sell-side resolution.
type PoolStore interface {
	// Insert adds a pool. Returns ErrDuplicateKey if a pool for the base mint exists.
	Insert(ctx context.Context, p *domain.PoolRecord) error

	// GetByMint retrieves the pool for a base mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.PoolRecord, error)

	// Count returns the number of stored pools.
	Count(ctx context.Context) (int, error)
}

// PositionStore mirrors open positions so they survive restarts.
type PositionStore interface {
	// Upsert inserts or replaces the position for its mint.
	Upsert(ctx context.Context, p *domain.Position) error

	// Delete removes the position for mint. Deleting an absent position is not an error.
	Delete(ctx context.Context, mint string) error

	// GetByMint retrieves a position. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Position, error)

	// GetAll retrieves all positions ordered by opened_at ASC.
	GetAll(ctx context.Context) ([]*domain.Position, error)
}

// TradeRecordStore journals terminal workflow outcomes.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByMint retrieves all trades for a mint, ordered by started_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error)

	// GetByTimeRange retrieves trades started within [start, end] (inclusive, Unix ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeRecord, error)
}
