package filter

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/solana"
)

// MarketCapFilter rejects assets whose circulating value is below a floor.
// circulating = total supply - holdings of burn sinks; value = circulating * spot price.
type MarketCapFilter struct {
	rpc    solana.RPCClient
	market market.Provider
	min    decimal.Decimal
	sinks  []string
}

// NewMarketCapFilter creates a filter with a floor in quote UI units. A non-positive floor disables it.
func NewMarketCapFilter(rpc solana.RPCClient, provider market.Provider, min decimal.Decimal, sinks []string) *MarketCapFilter {
	return &MarketCapFilter{rpc: rpc, market: provider, min: min, sinks: sinks}
}

func (f *MarketCapFilter) Name() string { return "market_cap" }

func (f *MarketCapFilter) RequiresMetadata() bool { return false }

func (f *MarketCapFilter) Execute(ctx context.Context, pool *domain.PoolKeys, _ *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	if !f.min.IsPositive() {
		return domain.Pass(), nil
	}

	amount, err := f.rpc.GetTokenSupply(ctx, pool.BaseMint)
	if err != nil {
		return domain.FilterResult{}, fmt.Errorf("token supply: %w", err)
	}
	supply, err := parseRaw(amount)
	if err != nil {
		return domain.FilterResult{}, err
	}
	burned, err := sinkHoldings(ctx, f.rpc, f.sinks, pool.BaseMint)
	if err != nil {
		return domain.FilterResult{}, err
	}
	reserves, err := f.market.Reserves(ctx, pool)
	if err != nil {
		return domain.FilterResult{}, err
	}
	price, err := reserves.SpotPrice(pool)
	if err != nil {
		return domain.FilterResult{}, err
	}

	var circulating uint64
	if supply > burned {
		circulating = supply - burned
	}
	mcap := market.ToUI(circulating, pool.BaseDecimals).Mul(price)
	if mcap.LessThan(f.min) {
		return domain.Fail(fmt.Sprintf("market_cap: market cap %s < min %s", mcap.StringFixed(4), f.min)), nil
	}
	return domain.Pass(), nil
}
