package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/solana"
)

// RunExitMonitor re-evaluates open positions every interval so time-based
// exits fire without wallet activity. It returns when ctx is done.
func (e *Engine) RunExitMonitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.CheckPositions(ctx)
		}
	}
}

// CheckPositions starts a sell workflow for every open position that holds a
// balance and has no sell in flight.
func (e *Engine) CheckPositions(ctx context.Context) {
	for _, pos := range e.tracker.Open() {
		if e.guard.held(pos.Mint) {
			continue
		}
		raw, err := e.heldBalance(ctx, pos.Mint)
		if err != nil {
			e.logger.Warn("read position balance", zap.String("mint", pos.Mint), zap.Error(err))
			continue
		}
		if raw == 0 {
			e.logger.Debug("position has no balance", zap.String("mint", pos.Mint))
			continue
		}

		mint := pos.Mint
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.Sell(ctx, mint, raw)
		}()
	}
}

func (e *Engine) heldBalance(ctx context.Context, mint string) (uint64, error) {
	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return 0, err
	}
	ata, err := solana.FindAssociatedTokenAddress(e.wallet.PublicKey(), mintKey)
	if err != nil {
		return 0, err
	}
	bal, err := e.rpc.GetTokenAccountBalance(ctx, ata.String())
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(bal.Amount, 10, 64)
}

// ErrQuoteAccountMissing is returned by CheckWallet when the wallet has no quote token account.
var ErrQuoteAccountMissing = errors.New("quote token account not found")

// CheckWallet verifies the wallet's quote token account exists.
func (e *Engine) CheckWallet(ctx context.Context) error {
	info, err := e.rpc.GetAccountInfo(ctx, e.quoteATA.String())
	if err != nil {
		return fmt.Errorf("get quote token account: %w", err)
	}
	if info == nil {
		return fmt.Errorf("%w: %s (mint %s)", ErrQuoteAccountMissing, e.quoteATA, e.quoteMint)
	}
	return nil
}
