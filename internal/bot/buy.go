package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/solana"
)

// Buy runs the acquisition workflow for a discovered pool. It never panics
// and returns once the workflow reaches a terminal state or short-circuits.
func (e *Engine) Buy(ctx context.Context, poolID string, state *domain.PoolState) {
	mint := state.BaseMint

	if e.cfg.OneTokenAtATime {
		if !e.acquireMu.TryLock() {
			e.logger.Debug("acquisition in progress, skipping pool", zap.String("mint", mint), zap.String("pool", poolID))
			return
		}
		defer e.acquireMu.Unlock()
	}
	// Pool accounts notify on every swap, so a mint can arrive again before its
	// first buy settles.
	if !e.buying.tryAcquire(mint) {
		e.logger.Debug("buy already in flight", zap.String("mint", mint))
		return
	}
	defer e.buying.release(mint)
	if e.tracker.Has(mint) {
		e.logger.Debug("position already open, skipping pool", zap.String("mint", mint))
		return
	}
	if e.cfg.UseSnipeList && (e.allow == nil || !e.allow.Contains(mint)) {
		e.logger.Debug("mint not in snipe list", zap.String("mint", mint))
		return
	}

	o := &outcome{side: domain.SideBuy, mint: mint, poolID: poolID, started: e.now()}
	defer func() {
		if r := recover(); r != nil {
			e.recovered(o, r)
		}
		e.finish(ctx, o)
	}()

	e.buy(ctx, poolID, state, o)
}

func (e *Engine) buy(ctx context.Context, poolID string, state *domain.PoolState, o *outcome) {
	keys, err := e.market.ResolvePool(ctx, poolID, state)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("resolve pool: %v", err)
		return
	}

	if res := e.runGate(ctx, keys); !res.OK {
		o.status = domain.TradeStatusAbandoned
		o.err = res.Message
		return
	}
	o.candidate = true
	e.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindBuyCandidate,
		Mint:    o.mint,
		PoolID:  keys.ID,
		Message: "potential buy identified",
		At:      e.now(),
	})

	reserves, err := e.market.Reserves(ctx, keys)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("read reserves: %v", err)
		return
	}
	quote, err := e.market.ComputeAmountOut(keys, reserves, keys.QuoteMint, e.cfg.QuoteAmount, e.cfg.BuySlippage)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("compute amount out: %v", err)
		return
	}
	o.amountIn = e.cfg.QuoteAmount.String()
	o.minAmountOut = quote.MinAmountOutUI.String()

	if e.cfg.MaxPoolSize.IsPositive() {
		after := market.ToUI(quote.QuoteReserveRaw, keys.QuoteDecimals)
		if after.GreaterThan(e.cfg.MaxPoolSize) {
			o.status = domain.TradeStatusAbandoned
			o.err = fmt.Sprintf("pool size %s > max %s after swap", after, e.cfg.MaxPoolSize)
			return
		}
	}

	if !e.cfg.BuyEnabled {
		o.status = domain.TradeStatusSkipped
		o.err = "buying disabled"
		return
	}

	ixs, err := e.buyInstructions(keys, quote)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("build instructions: %v", err)
		return
	}

	sub := e.submit(ctx, domain.SideBuy, o.mint, e.cfg.MaxBuyRetries, ixs)
	o.attempts = sub.attempts
	if !sub.confirmed {
		o.status = domain.TradeStatusFailed
		o.err = errString(sub.err, "buy not confirmed")
		return
	}
	o.status = domain.TradeStatusConfirmed
	o.signature = sub.signature

	e.resolver.Remember(keys)
	e.tracker.OnAcquisitionConfirmed(ctx, o.mint, keys.ID, e.cfg.QuoteAmount, quote.MinAmountOutUI, e.fetchMetadata(ctx, o.mint))
	e.syncOpenPositions()
	e.notifier.Notify(ctx, notify.Event{
		Kind:      notify.KindBuy,
		Mint:      o.mint,
		PoolID:    keys.ID,
		Status:    string(o.status),
		Signature: o.signature,
		Message:   "buy confirmed",
		At:        e.now(),
	})
}

// buyInstructions swaps quote for base into the wallet's base token account,
// creating it if needed.
func (e *Engine) buyInstructions(keys *domain.PoolKeys, quote *market.Quote) ([]solana.Instruction, error) {
	owner := e.wallet.PublicKey()
	baseMint, err := solana.ParsePublicKey(keys.BaseMint)
	if err != nil {
		return nil, err
	}
	baseATA, err := solana.FindAssociatedTokenAddress(owner, baseMint)
	if err != nil {
		return nil, err
	}
	swap, err := market.SwapBaseIn(keys, e.quoteATA, baseATA, owner, quote.AmountIn, quote.MinAmountOut)
	if err != nil {
		return nil, err
	}

	ixs := e.computeBudget()
	ixs = append(ixs,
		solana.CreateAssociatedTokenAccountIdempotent(owner, baseATA, owner, baseMint),
		swap,
	)
	return ixs, nil
}

// fetchMetadata returns a best-effort snapshot for naming a position.
func (e *Engine) fetchMetadata(ctx context.Context, mint string) *domain.AssetMetadataSnapshot {
	if e.meta == nil {
		return nil
	}
	meta, err := e.meta.Fetch(ctx, mint)
	if err != nil {
		e.logger.Debug("metadata unavailable", zap.String("mint", mint), zap.Error(err))
		return nil
	}
	return meta
}

// recovered converts a workflow panic into a failed outcome.
func (e *Engine) recovered(o *outcome, r any) {
	o.status = domain.TradeStatusFailed
	o.err = fmt.Sprintf("panic: %v", r)
	if e.metrics != nil {
		e.metrics.WorkflowPanics.WithLabelValues(string(o.side)).Inc()
	}
	e.logger.Error("workflow panicked",
		zap.String("side", string(o.side)),
		zap.String("mint", o.mint),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
}

func (e *Engine) syncOpenPositions() {
	if e.metrics != nil {
		e.metrics.OpenPositions.Set(float64(len(e.tracker.Open())))
	}
}

func errString(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
