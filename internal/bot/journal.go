package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/notify"
)

// outcome collects what a workflow records when it terminates.
type outcome struct {
	side         domain.Side
	mint         string
	poolID       string
	status       domain.TradeStatus
	attempts     int
	signature    string
	amountIn     string
	minAmountOut string
	exitReason   domain.ExitReason
	err          string
	started      time.Time
	candidate    bool // buy passed the filter gate
}

// finish logs, journals and counts a terminal workflow outcome.
func (e *Engine) finish(ctx context.Context, o *outcome) {
	finished := e.now()

	fields := []zap.Field{
		zap.String("side", string(o.side)),
		zap.String("mint", o.mint),
		zap.String("pool", o.poolID),
		zap.String("status", string(o.status)),
		zap.Int("attempts", o.attempts),
	}
	if o.signature != "" {
		fields = append(fields, zap.String("signature", o.signature))
	}
	if o.exitReason != "" {
		fields = append(fields, zap.String("exit_reason", string(o.exitReason)))
	}
	if o.err != "" {
		fields = append(fields, zap.String("reason", o.err))
	}
	switch o.status {
	case domain.TradeStatusFailed:
		e.logger.Error("workflow finished", fields...)
	case domain.TradeStatusConfirmed:
		e.logger.Info("workflow finished", fields...)
	default:
		e.logger.Debug("workflow finished", fields...)
	}

	if e.metrics != nil {
		e.metrics.RecordWorkflow(string(o.side), string(o.status), finished.Sub(o.started))
	}
	e.notifyFailure(ctx, o, finished)

	if e.trades == nil {
		return
	}
	rec := &domain.TradeRecord{
		TradeID:      idhash.ComputeTradeID(o.side, o.mint, o.poolID, o.started.UnixMilli()),
		Side:         o.side,
		Mint:         o.mint,
		PoolID:       o.poolID,
		Status:       o.status,
		Attempts:     o.attempts,
		Signature:    o.signature,
		AmountIn:     o.amountIn,
		MinAmountOut: o.minAmountOut,
		ExitReason:   string(o.exitReason),
		Error:        o.err,
		StartedAt:    o.started.UnixMilli(),
		FinishedAt:   finished.UnixMilli(),
	}
	// The journal outlives a cancelled workflow context.
	if err := e.trades.Insert(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn("journal trade", zap.String("mint", o.mint), zap.Error(err))
	}
}

// notifyFailure reports failed workflows. A buy abandoned after it was
// announced as a candidate counts as failed too.
func (e *Engine) notifyFailure(ctx context.Context, o *outcome, at time.Time) {
	failed := o.status == domain.TradeStatusFailed ||
		(o.side == domain.SideBuy && o.candidate && o.status == domain.TradeStatusAbandoned)
	if !failed {
		return
	}

	kind, msg := notify.KindBuyFailed, "buy failed"
	if o.side == domain.SideSell {
		kind, msg = notify.KindSellFailed, "sell failed"
	}
	e.notifier.Notify(ctx, notify.Event{
		Kind:    kind,
		Mint:    o.mint,
		PoolID:  o.poolID,
		Status:  string(o.status),
		Reason:  o.err,
		Message: msg,
		At:      at,
	})
}
