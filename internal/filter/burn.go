package filter

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// BurnFilter passes when enough of the pool's LP tokens are burned or parked in burn sinks.
type BurnFilter struct {
	rpc       solana.RPCClient
	threshold decimal.Decimal // percent
	sinks     []string
}

// NewBurnFilter creates a burn filter requiring thresholdPercent of LP burned.
func NewBurnFilter(rpc solana.RPCClient, thresholdPercent decimal.Decimal, sinks []string) *BurnFilter {
	return &BurnFilter{rpc: rpc, threshold: thresholdPercent, sinks: sinks}
}

func (f *BurnFilter) Name() string { return "burn" }

func (f *BurnFilter) RequiresMetadata() bool { return false }

// Execute computes burned = (lpReserve - circulating + sinkHoldings) / lpReserve.
func (f *BurnFilter) Execute(ctx context.Context, pool *domain.PoolKeys, _ *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	amount, err := f.rpc.GetTokenSupply(ctx, pool.LpMint)
	if err != nil {
		return domain.FilterResult{}, fmt.Errorf("lp supply: %w", err)
	}
	supply, err := parseRaw(amount)
	if err != nil {
		return domain.FilterResult{}, err
	}
	held, err := sinkHoldings(ctx, f.rpc, f.sinks, pool.LpMint)
	if err != nil {
		return domain.FilterResult{}, err
	}

	pct := burnedPercent(pool.LpReserve, supply, held)
	if pct.LessThan(f.threshold) {
		return domain.Fail(fmt.Sprintf("burn: LP burned %s%% is below %s%%", pct.StringFixed(2), f.threshold)), nil
	}
	return domain.Pass(), nil
}

func burnedPercent(reserve, supply, sinkHeld uint64) decimal.Decimal {
	base := reserve
	if supply > base {
		base = supply
	}
	if base == 0 {
		return decimal.NewFromInt(100)
	}
	burned := rawDecimal(base).Sub(rawDecimal(supply)).Add(rawDecimal(sinkHeld))
	pct := burned.Div(rawDecimal(base)).Mul(decimal.NewFromInt(100))
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}
