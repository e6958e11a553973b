package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// submission is the outcome of a retried submit.
type submission struct {
	attempts  int
	confirmed bool
	signature string
	err       error // last failure when not confirmed
}

// submit sends the instructions up to maxAttempts times, each against a fresh
// blockhash, and stops at the first confirmation.
func (e *Engine) submit(ctx context.Context, side domain.Side, mint string, maxAttempts int, ixs []solana.Instruction) submission {
	var out submission
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				out.err = err
				return out
			}
		}
		out.attempts = attempt

		sig, confirmed, err := e.submitOnce(ctx, ixs)
		if e.metrics != nil {
			e.metrics.RecordSubmission(string(side), confirmed)
		}
		if confirmed {
			out.confirmed = true
			out.signature = sig
			out.err = nil
			return out
		}

		out.err = err
		e.logger.Warn("submission not confirmed",
			zap.String("side", string(side)),
			zap.String("mint", mint),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.String("signature", sig),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return out
		}
	}
	return out
}

func (e *Engine) submitOnce(ctx context.Context, ixs []solana.Instruction) (string, bool, error) {
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", false, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, blockhash.Blockhash, e.wallet.PublicKey())
	if err != nil {
		return "", false, fmt.Errorf("build transaction: %w", err)
	}
	res, err := e.executor.ExecuteAndConfirm(ctx, tx, e.wallet, *blockhash)
	if err != nil {
		return "", false, err
	}
	return res.Signature, res.Confirmed, res.Err()
}

// computeBudget returns the compute budget instructions for a swap.
func (e *Engine) computeBudget() []solana.Instruction {
	var ixs []solana.Instruction
	if e.cfg.ComputeUnitLimit > 0 {
		ixs = append(ixs, solana.SetComputeUnitLimit(e.cfg.ComputeUnitLimit))
	}
	if e.cfg.ComputeUnitPrice > 0 {
		ixs = append(ixs, solana.SetComputeUnitPrice(e.cfg.ComputeUnitPrice))
	}
	return ixs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
