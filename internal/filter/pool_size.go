package filter

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
)

// PoolSizeFilter bounds the quote-side reserve. A zero bound is disabled.
type PoolSizeFilter struct {
	market market.Provider
	min    decimal.Decimal
	max    decimal.Decimal
}

// NewPoolSizeFilter creates a filter bounding the quote reserve to [min, max] in UI units.
func NewPoolSizeFilter(provider market.Provider, min, max decimal.Decimal) *PoolSizeFilter {
	return &PoolSizeFilter{market: provider, min: min, max: max}
}

func (f *PoolSizeFilter) Name() string { return "pool_size" }

func (f *PoolSizeFilter) RequiresMetadata() bool { return false }

func (f *PoolSizeFilter) Execute(ctx context.Context, pool *domain.PoolKeys, _ *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	reserves, err := f.market.Reserves(ctx, pool)
	if err != nil {
		return domain.FilterResult{}, err
	}
	return checkPoolSize(reserves.QuoteUI(pool), f.min, f.max), nil
}

func checkPoolSize(size, min, max decimal.Decimal) domain.FilterResult {
	if min.IsPositive() && size.LessThan(min) {
		return domain.Fail(fmt.Sprintf("pool_size: pool size %s < min %s", size, min))
	}
	if max.IsPositive() && size.GreaterThan(max) {
		return domain.Fail(fmt.Sprintf("pool_size: pool size %s > max %s", size, max))
	}
	return domain.Pass()
}
