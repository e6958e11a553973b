// Package listener turns programSubscribe notifications into engine events:
// new Raydium pools, new OpenBook markets and wallet token balance changes.
package listener

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/solana"
)

// poolStatusSwap is the AMM status of a pool open for swapping.
const poolStatusSwap = 6

// ErrSubscriptionClosed is returned by Run when a feed closes before ctx is done.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Handler receives decoded events.
type Handler interface {
	HandlePool(ctx context.Context, poolID string, state *domain.PoolState)
	HandleWalletChange(ctx context.Context, acct *solana.TokenAccount)
}

// MarketSink stores raw OpenBook market accounts.
type MarketSink interface {
	Save(id string, data []byte) error
}

// Config selects what to subscribe to.
type Config struct {
	QuoteMint string
	Wallet    solana.PublicKey
	// CacheNewMarkets subscribes to OpenBook markets quoted in QuoteMint.
	CacheNewMarkets bool
	// Pools must open after StartedAt to be dispatched.
	StartedAt time.Time
}

// Listener dispatches subscription notifications to a Handler.
type Listener struct {
	ws      solana.WSClient
	cfg     Config
	handler Handler
	markets MarketSink
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a Listener. markets and metrics may be nil.
func New(ws solana.WSClient, cfg Config, handler Handler, markets MarketSink, metrics *observability.Metrics, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		ws:      ws,
		cfg:     cfg,
		handler: handler,
		markets: markets,
		metrics: metrics,
		logger:  logger,
	}
}

// PoolFilter selects swappable Raydium v4 pools quoted in the configured mint.
func (l *Listener) PoolFilter() solana.ProgramFilter {
	status := make([]byte, 8)
	binary.LittleEndian.PutUint64(status, poolStatusSwap)
	return solana.ProgramFilter{
		ProgramID: market.RaydiumAMMV4,
		DataSize:  market.PoolStateV4Size,
		Memcmp: []solana.Memcmp{
			{Offset: market.OffsetPoolQuoteMint, Bytes: l.cfg.QuoteMint},
			{Offset: market.OffsetPoolMarketProgram, Bytes: market.OpenBookV3},
			{Offset: market.OffsetPoolStatus, Bytes: base58.Encode(status)},
		},
	}
}

// MarketFilter selects OpenBook v3 markets quoted in the configured mint.
func (l *Listener) MarketFilter() solana.ProgramFilter {
	return solana.ProgramFilter{
		ProgramID: market.OpenBookV3,
		DataSize:  market.MarketStateV3Size,
		Memcmp: []solana.Memcmp{
			{Offset: market.OffsetMarketQuoteMint, Bytes: l.cfg.QuoteMint},
		},
	}
}

// WalletFilter selects SPL token accounts owned by the wallet.
func (l *Listener) WalletFilter() solana.ProgramFilter {
	return solana.ProgramFilter{
		ProgramID: solana.TokenProgramID.String(),
		DataSize:  solana.TokenAccountSize,
		Memcmp: []solana.Memcmp{
			{Offset: solana.TokenAccountOwnerOffset, Bytes: l.cfg.Wallet.String()},
		},
	}
}

// Run subscribes and dispatches notifications until ctx is done. It returns
// ErrSubscriptionClosed if the client closes a feed first.
func (l *Listener) Run(ctx context.Context) error {
	pools, err := l.ws.SubscribeProgram(ctx, l.PoolFilter())
	if err != nil {
		return err
	}
	var markets <-chan solana.ProgramNotification
	if l.cfg.CacheNewMarkets && l.markets != nil {
		if markets, err = l.ws.SubscribeProgram(ctx, l.MarketFilter()); err != nil {
			return err
		}
	}
	wallet, err := l.ws.SubscribeProgram(ctx, l.WalletFilter())
	if err != nil {
		return err
	}
	l.logger.Info("listening",
		zap.String("quote_mint", l.cfg.QuoteMint),
		zap.String("wallet", l.cfg.Wallet.String()),
		zap.Bool("cache_new_markets", markets != nil),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-pools:
			if !ok {
				return ErrSubscriptionClosed
			}
			l.onPool(ctx, n)
		case n, ok := <-markets:
			if !ok {
				return ErrSubscriptionClosed
			}
			l.onMarket(n)
		case n, ok := <-wallet:
			if !ok {
				return ErrSubscriptionClosed
			}
			l.onWallet(ctx, n)
		}
	}
}

func (l *Listener) onPool(ctx context.Context, n solana.ProgramNotification) {
	data, err := n.Account.DecodeData()
	if err != nil {
		l.ignorePool("decode", n.Pubkey, err)
		return
	}
	state, err := market.DecodePoolState(data)
	if err != nil {
		l.ignorePool("decode", n.Pubkey, err)
		return
	}
	if state.OpenTime <= l.cfg.StartedAt.Unix() {
		l.ignorePool("opened_before_start", n.Pubkey, nil)
		return
	}
	l.handler.HandlePool(ctx, n.Pubkey, state)
}

func (l *Listener) ignorePool(reason, pool string, err error) {
	if l.metrics != nil {
		l.metrics.PoolsIgnored.WithLabelValues(reason).Inc()
	}
	if err != nil {
		l.logger.Debug("pool ignored", zap.String("pool", pool), zap.String("reason", reason), zap.Error(err))
	}
}

func (l *Listener) onMarket(n solana.ProgramNotification) {
	data, err := n.Account.DecodeData()
	if err == nil {
		err = l.markets.Save(n.Pubkey, data)
	}
	if err != nil {
		l.logger.Debug("market not cached", zap.String("market", n.Pubkey), zap.Error(err))
		return
	}
	if l.metrics != nil {
		l.metrics.MarketsCached.Inc()
	}
}

func (l *Listener) onWallet(ctx context.Context, n solana.ProgramNotification) {
	data, err := n.Account.DecodeData()
	if err != nil {
		l.logger.Debug("wallet account undecodable", zap.String("account", n.Pubkey), zap.Error(err))
		return
	}
	acct, err := solana.DecodeTokenAccount(data)
	if err != nil {
		l.logger.Debug("wallet account undecodable", zap.String("account", n.Pubkey), zap.Error(err))
		return
	}
	if l.metrics != nil {
		l.metrics.WalletUpdates.Inc()
	}
	l.handler.HandleWalletChange(ctx, acct)
}
