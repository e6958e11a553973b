package filter

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/market"
	"solana-sniper/internal/metadata"
	"solana-sniper/internal/solana"
)

// Config selects and parameterizes filters.
type Config struct {
	CheckBurned            bool
	BurnedThresholdPercent decimal.Decimal
	BurnSinks              []string

	CheckRenounced bool
	CheckFreezable bool

	CheckMutable bool
	CheckSocials bool

	MinPoolSize decimal.Decimal
	MaxPoolSize decimal.Decimal
	MaxPoolAge  time.Duration

	MinMarketCap decimal.Decimal

	BlocklistNames      []string
	BlocklistSymbols    []string
	BlocklistFailClosed bool
}

// Deps are the collaborators filters read from.
type Deps struct {
	RPC         solana.RPCClient
	Market      market.Provider
	Descriptors metadata.DescriptorFetcher
	Now         func() time.Time
	Logger      *zap.Logger
}

// Build returns the enabled filters, cheapest first.
func Build(cfg Config, deps Deps) []Filter {
	var filters []Filter

	if cfg.MaxPoolAge > 0 {
		filters = append(filters, NewPoolAgeFilter(cfg.MaxPoolAge, deps.Now))
	}
	if cfg.MinPoolSize.IsPositive() || cfg.MaxPoolSize.IsPositive() {
		filters = append(filters, NewPoolSizeFilter(deps.Market, cfg.MinPoolSize, cfg.MaxPoolSize))
	}
	if cfg.CheckBurned {
		filters = append(filters, NewBurnFilter(deps.RPC, cfg.BurnedThresholdPercent, cfg.BurnSinks))
	}
	if cfg.CheckRenounced || cfg.CheckFreezable {
		filters = append(filters, NewRenouncedFilter(deps.RPC, cfg.CheckRenounced, cfg.CheckFreezable))
	}
	if cfg.CheckMutable || cfg.CheckSocials {
		filters = append(filters, NewMutableFilter(deps.Descriptors, cfg.CheckMutable, cfg.CheckSocials, deps.Logger))
	}
	if cfg.MinMarketCap.IsPositive() {
		filters = append(filters, NewMarketCapFilter(deps.RPC, deps.Market, cfg.MinMarketCap, cfg.BurnSinks))
	}
	if len(cfg.BlocklistNames) > 0 || len(cfg.BlocklistSymbols) > 0 {
		filters = append(filters, NewBlocklistFilter(cfg.BlocklistNames, cfg.BlocklistSymbols, cfg.BlocklistFailClosed))
	}
	return filters
}
