package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/storage"
)

// Resolver maps a base mint to the pool keys used to trade it. Keys from a
// buy are remembered; otherwise the pool store's record is resolved.
type Resolver struct {
	market market.Provider
	pools  storage.PoolStore

	mu   sync.RWMutex
	keys map[string]*domain.PoolKeys
}

// NewResolver creates a Resolver.
func NewResolver(provider market.Provider, pools storage.PoolStore) *Resolver {
	return &Resolver{
		market: provider,
		pools:  pools,
		keys:   make(map[string]*domain.PoolKeys),
	}
}

// Remember caches keys for their base mint.
func (r *Resolver) Remember(keys *domain.PoolKeys) {
	r.mu.Lock()
	r.keys[keys.BaseMint] = keys
	r.mu.Unlock()
}

// Forget drops cached keys for mint.
func (r *Resolver) Forget(mint string) {
	r.mu.Lock()
	delete(r.keys, mint)
	r.mu.Unlock()
}

// Keys returns pool keys for mint.
func (r *Resolver) Keys(ctx context.Context, mint string) (*domain.PoolKeys, error) {
	r.mu.RLock()
	keys, ok := r.keys[mint]
	r.mu.RUnlock()
	if ok {
		return keys, nil
	}

	rec, err := r.pools.GetByMint(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get pool for %s: %w", mint, err)
	}
	keys, err = r.market.ResolvePool(ctx, rec.ID, &rec.State)
	if err != nil {
		return nil, fmt.Errorf("resolve pool %s: %w", rec.ID, err)
	}
	r.Remember(keys)
	return keys, nil
}

// ValueInQuote prices a zero-slippage sale of held base units. It implements position.Valuer.
func (r *Resolver) ValueInQuote(ctx context.Context, pos *domain.Position, held decimal.Decimal) (decimal.Decimal, error) {
	keys, err := r.Keys(ctx, pos.Mint)
	if err != nil {
		return decimal.Zero, err
	}
	reserves, err := r.market.Reserves(ctx, keys)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read reserves: %w", err)
	}
	quote, err := r.market.ComputeAmountOut(keys, reserves, keys.BaseMint, held, decimal.Zero)
	if err != nil {
		return decimal.Zero, fmt.Errorf("compute amount out: %w", err)
	}
	return quote.AmountOutUI, nil
}
