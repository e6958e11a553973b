// Package bot drives buy and sell workflows from pool and wallet events.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/market"
	"solana-sniper/internal/metadata"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/position"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
)

// Config controls trading behaviour.
type Config struct {
	QuoteMint   string
	QuoteAmount decimal.Decimal // UI units spent per buy

	BuyEnabled      bool
	AutoSell        bool
	OneTokenAtATime bool

	MaxBuyRetries  int
	MaxSellRetries int
	RetryDelay     time.Duration
	BuySlippage    decimal.Decimal // percent
	SellSlippage   decimal.Decimal // percent

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	MaxPoolSize decimal.Decimal // UI quote units, zero disables the post-swap cap

	ConsecutiveMatches  int
	FilterCheckInterval time.Duration
	FilterCheckDuration time.Duration

	UseSnipeList bool
}

// Gate decides whether a pool is eligible.
type Gate interface {
	Evaluate(ctx context.Context, pool *domain.PoolKeys) domain.FilterResult
}

// AllowList reports whether a mint may be bought.
type AllowList interface {
	Contains(mint string) bool
}

// Deps are the engine's collaborators. Optional ones may be nil.
type Deps struct {
	RPC      solana.RPCClient
	Market   market.Provider
	Gate     Gate
	Executor execution.Executor
	Tracker  *position.Tracker
	Pools    storage.PoolStore
	Wallet   solana.Keypair

	// Optional.
	Metadata  metadata.Provider
	Trades    storage.TradeRecordStore
	Notifier  notify.Notifier
	SnipeList AllowList // required when UseSnipeList
	Metrics   *observability.Metrics
	Resolver  *Resolver // shared with the tracker's valuer
	Now       func() time.Time
	Logger    *zap.Logger
}

// Engine runs buy and sell workflows. Each workflow recovers its own panics
// and records a terminal outcome; nothing escapes to the caller.
type Engine struct {
	cfg      Config
	rpc      solana.RPCClient
	market   market.Provider
	gate     Gate
	executor execution.Executor
	tracker  *position.Tracker
	pools    storage.PoolStore
	wallet   solana.Keypair
	meta     metadata.Provider
	trades   storage.TradeRecordStore
	notifier notify.Notifier
	allow    AllowList
	metrics  *observability.Metrics
	resolver *Resolver
	now      func() time.Time
	logger   *zap.Logger

	quoteMint solana.PublicKey
	quoteATA  solana.PublicKey

	acquireMu sync.Mutex
	buying    *inFlightGuard
	guard     *inFlightGuard // sells
	wg        sync.WaitGroup
}

// New creates an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	quoteMint, err := solana.ParsePublicKey(cfg.QuoteMint)
	if err != nil {
		return nil, err
	}
	quoteATA, err := solana.FindAssociatedTokenAddress(deps.Wallet.PublicKey(), quoteMint)
	if err != nil {
		return nil, err
	}
	if cfg.ConsecutiveMatches <= 0 {
		cfg.ConsecutiveMatches = 1
	}
	if cfg.MaxBuyRetries <= 0 {
		cfg.MaxBuyRetries = 1
	}
	if cfg.MaxSellRetries <= 0 {
		cfg.MaxSellRetries = 1
	}

	e := &Engine{
		cfg:       cfg,
		rpc:       deps.RPC,
		market:    deps.Market,
		gate:      deps.Gate,
		executor:  deps.Executor,
		tracker:   deps.Tracker,
		pools:     deps.Pools,
		wallet:    deps.Wallet,
		meta:      deps.Metadata,
		trades:    deps.Trades,
		notifier:  deps.Notifier,
		allow:     deps.SnipeList,
		metrics:   deps.Metrics,
		resolver:  deps.Resolver,
		now:       deps.Now,
		logger:    deps.Logger,
		quoteMint: quoteMint,
		quoteATA:  quoteATA,
		buying:    newInFlightGuard(),
		guard:     newInFlightGuard(),
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.resolver == nil {
		e.resolver = NewResolver(deps.Market, deps.Pools)
	}
	return e, nil
}

// HandlePool records a newly discovered pool and starts a buy workflow in the
// background. Pools for an already seen base mint are ignored.
func (e *Engine) HandlePool(ctx context.Context, poolID string, state *domain.PoolState) {
	rec := &domain.PoolRecord{
		ID:           poolID,
		BaseMint:     state.BaseMint,
		QuoteMint:    state.QuoteMint,
		State:        *state,
		DiscoveredAt: e.now().UnixMilli(),
	}
	if err := e.pools.Insert(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Pool accounts notify on every swap; only the first sighting of a mint buys.
			return
		}
		e.logger.Warn("store pool", zap.String("pool", poolID), zap.String("mint", state.BaseMint), zap.Error(err))
	}
	if e.metrics != nil {
		e.metrics.RecordPoolDiscovered(e.now())
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Buy(ctx, poolID, state)
	}()
}

// HandleWalletChange starts a sell workflow for a changed token account when
// auto-sell is on and the account holds a non-quote asset.
func (e *Engine) HandleWalletChange(ctx context.Context, acct *solana.TokenAccount) {
	mint := acct.Mint.String()
	if mint == e.cfg.QuoteMint || acct.Amount == 0 {
		return
	}
	if !e.cfg.AutoSell {
		e.logger.Debug("auto sell disabled, ignoring wallet change", zap.String("mint", mint))
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Sell(ctx, mint, acct.Amount)
	}()
}

// Wait blocks until every background workflow has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// InFlight reports whether a sell workflow currently holds mint's guard.
func (e *Engine) InFlight(mint string) bool {
	return e.guard.held(mint)
}
