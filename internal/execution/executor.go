// Package execution submits signed transactions and waits for confirmation.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/solana"
)

// ErrNotConfirmed marks a submission that did not reach the target commitment
// before its blockhash expired.
var ErrNotConfirmed = errors.New("transaction not confirmed")

// Result is the outcome of one submission.
type Result struct {
	Signature string
	Confirmed bool
	Slot      uint64
	// Error is the on-chain failure or expiry reason when not confirmed.
	Error string
}

// Err returns ErrNotConfirmed wrapped with the failure reason, or nil when confirmed.
func (r *Result) Err() error {
	if r == nil || r.Confirmed {
		return nil
	}
	if r.Error == "" {
		return ErrNotConfirmed
	}
	return fmt.Errorf("%w: %s", ErrNotConfirmed, r.Error)
}

// Executor signs, submits and confirms a transaction built against blockhash.
// A transaction that lands with an error or expires is reported through
// Result.Confirmed, not as an error.
type Executor interface {
	ExecuteAndConfirm(ctx context.Context, tx *solana.Transaction, signer solana.Keypair, blockhash solana.Blockhash) (*Result, error)
}

// Config configures an RPCExecutor.
type Config struct {
	Commitment     string
	PollInterval   time.Duration
	SkipPreflight  bool
	MaxSendRetries *uint
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		Commitment:    solana.CommitmentConfirmed,
		PollInterval:  500 * time.Millisecond,
		SkipPreflight: true,
	}
}

// RPCExecutor submits through sendTransaction and polls getSignatureStatuses.
type RPCExecutor struct {
	rpc    solana.RPCClient
	cfg    Config
	logger *zap.Logger
}

// NewRPCExecutor creates an executor.
func NewRPCExecutor(rpc solana.RPCClient, cfg Config, logger *zap.Logger) *RPCExecutor {
	if cfg.Commitment == "" {
		cfg.Commitment = solana.CommitmentConfirmed
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCExecutor{rpc: rpc, cfg: cfg, logger: logger}
}

// ExecuteAndConfirm implements Executor.
func (e *RPCExecutor) ExecuteAndConfirm(
	ctx context.Context,
	tx *solana.Transaction,
	signer solana.Keypair,
	blockhash solana.Blockhash,
) (*Result, error) {
	if err := tx.Sign(signer); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := e.rpc.SendTransaction(ctx, raw, &solana.SendOpts{
		SkipPreflight:       e.cfg.SkipPreflight,
		PreflightCommitment: e.cfg.Commitment,
		MaxRetries:          e.cfg.MaxSendRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	e.logger.Debug("transaction sent", zap.String("signature", sig), zap.String("blockhash", blockhash.Blockhash))

	return e.confirm(ctx, sig, blockhash.LastValidBlockHeight)
}

func (e *RPCExecutor) confirm(ctx context.Context, sig string, lastValid uint64) (*Result, error) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := e.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			e.logger.Warn("signature status poll failed", zap.String("signature", sig), zap.Error(err))
		} else if len(statuses) == 1 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return &Result{Signature: sig, Slot: st.Slot, Error: fmt.Sprintf("%v", st.Err)}, nil
			}
			if commitmentReached(st.ConfirmationStatus, e.cfg.Commitment) {
				return &Result{Signature: sig, Slot: st.Slot, Confirmed: true}, nil
			}
		}

		height, err := e.rpc.GetBlockHeight(ctx)
		if err != nil {
			e.logger.Warn("block height poll failed", zap.String("signature", sig), zap.Error(err))
		} else if height > lastValid {
			return &Result{Signature: sig, Error: "blockhash expired"}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var commitmentRank = map[string]int{
	solana.CommitmentProcessed: 0,
	solana.CommitmentConfirmed: 1,
	solana.CommitmentFinalized: 2,
}

func commitmentReached(have, want string) bool {
	h, ok := commitmentRank[have]
	if !ok {
		return false
	}
	return h >= commitmentRank[want]
}
