package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/position"
	"solana-sniper/internal/solana"
)

// Sell runs the disposal workflow for rawAmount base units of mint. At most
// one sell per mint runs at a time; the guard is released on every exit path.
// Nothing is recorded when the mint has no position or no exit criterion fires.
func (e *Engine) Sell(ctx context.Context, mint string, rawAmount uint64) {
	if !e.guard.tryAcquire(mint) {
		e.logger.Debug("sell already in flight", zap.String("mint", mint))
		return
	}
	defer e.guard.release(mint)

	o := &outcome{side: domain.SideSell, mint: mint, started: e.now()}
	defer func() {
		if r := recover(); r != nil {
			e.recovered(o, r)
		}
		if o.status != "" {
			e.finish(ctx, o)
		}
	}()

	e.sell(ctx, rawAmount, o)
}

func (e *Engine) sell(ctx context.Context, rawAmount uint64, o *outcome) {
	pos, ok := e.tracker.Get(o.mint)
	if !ok {
		e.logger.Debug("no position for wallet token", zap.String("mint", o.mint))
		return
	}
	o.poolID = pos.PoolID

	keys, err := e.resolver.Keys(ctx, o.mint)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("resolve pool: %v", err)
		return
	}
	o.poolID = keys.ID

	held := market.ToUI(rawAmount, keys.BaseDecimals)
	ev, err := e.tracker.Evaluate(ctx, o.mint, held)
	if err != nil {
		e.logger.Warn("exit evaluation failed", zap.String("mint", o.mint), zap.Error(err))
		return
	}
	if !ev.Exit {
		return
	}
	o.exitReason = ev.Reason
	if e.metrics != nil {
		e.metrics.ExitTriggers.WithLabelValues(string(ev.Reason)).Inc()
	}
	e.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindExitTrigger,
		Mint:       o.mint,
		PoolID:     keys.ID,
		Reason:     string(ev.Reason),
		PNLPercent: pnlString(ev),
		Message:    "sell triggered",
		At:         e.now(),
	})

	reserves, err := e.market.Reserves(ctx, keys)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("read reserves: %v", err)
		return
	}
	quote, err := e.market.ComputeAmountOut(keys, reserves, keys.BaseMint, held, e.cfg.SellSlippage)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("compute amount out: %v", err)
		return
	}
	o.amountIn = held.String()
	o.minAmountOut = quote.MinAmountOutUI.String()

	ixs, err := e.sellInstructions(keys, quote)
	if err != nil {
		o.status = domain.TradeStatusFailed
		o.err = fmt.Sprintf("build instructions: %v", err)
		return
	}

	sub := e.submit(ctx, domain.SideSell, o.mint, e.cfg.MaxSellRetries, ixs)
	o.attempts = sub.attempts
	if !sub.confirmed {
		o.status = domain.TradeStatusFailed
		o.err = errString(sub.err, "sell not confirmed")
		return
	}
	o.status = domain.TradeStatusConfirmed
	o.signature = sub.signature

	e.tracker.OnDisposalConfirmed(ctx, o.mint)
	e.resolver.Forget(o.mint)
	e.syncOpenPositions()
	e.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindSell,
		Mint:       o.mint,
		PoolID:     keys.ID,
		Status:     string(o.status),
		Signature:  o.signature,
		Reason:     string(ev.Reason),
		PNLPercent: pnlString(ev),
		Message:    "sell confirmed",
		At:         e.now(),
	})
}

// sellInstructions swaps base for quote and closes the emptied base token account.
func (e *Engine) sellInstructions(keys *domain.PoolKeys, quote *market.Quote) ([]solana.Instruction, error) {
	owner := e.wallet.PublicKey()
	baseMint, err := solana.ParsePublicKey(keys.BaseMint)
	if err != nil {
		return nil, err
	}
	baseATA, err := solana.FindAssociatedTokenAddress(owner, baseMint)
	if err != nil {
		return nil, err
	}
	swap, err := market.SwapBaseIn(keys, baseATA, e.quoteATA, owner, quote.AmountIn, quote.MinAmountOut)
	if err != nil {
		return nil, err
	}

	ixs := e.computeBudget()
	ixs = append(ixs,
		solana.CreateAssociatedTokenAccountIdempotent(owner, e.quoteATA, owner, e.quoteMint),
		swap,
		solana.CloseTokenAccount(baseATA, owner, owner),
	)
	return ixs, nil
}

func pnlString(ev position.Evaluation) string {
	if !ev.Valued {
		return ""
	}
	return ev.PNLPercent.String()
}
