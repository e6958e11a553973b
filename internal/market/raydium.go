package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// Raydium v4 charges 25 bps on the input amount.
var (
	swapFeeNumerator   = decimal.NewFromInt(25)
	swapFeeDenominator = decimal.NewFromInt(10000)
	hundred            = decimal.NewFromInt(100)
)

// ErrEmptyPool is returned when a pool has no liquidity on one side.
var ErrEmptyPool = errors.New("pool has no liquidity")

// Provider resolves pools and prices swaps against them.
type Provider interface {
	// ResolvePool builds full swap keys for the pool at id.
	ResolvePool(ctx context.Context, id string, state *domain.PoolState) (*domain.PoolKeys, error)
	// Reserves reads the current vault balances of a pool.
	Reserves(ctx context.Context, keys *domain.PoolKeys) (*Reserves, error)
	// ComputeAmountOut simulates a swap of amountIn (UI units of inputMint).
	ComputeAmountOut(keys *domain.PoolKeys, reserves *Reserves, inputMint string, amountIn, slippagePercent decimal.Decimal) (*Quote, error)
}

// Reserves are raw vault balances.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// QuoteUI returns the quote reserve in UI units.
func (r *Reserves) QuoteUI(keys *domain.PoolKeys) decimal.Decimal {
	return ToUI(r.Quote, keys.QuoteDecimals)
}

// SpotPrice returns quote per base in UI units.
func (r *Reserves) SpotPrice(keys *domain.PoolKeys) (decimal.Decimal, error) {
	if r.Base == 0 {
		return decimal.Zero, ErrEmptyPool
	}
	return ToUI(r.Quote, keys.QuoteDecimals).Div(ToUI(r.Base, keys.BaseDecimals)), nil
}

// Quote is a simulated swap.
type Quote struct {
	InputMint       string
	OutputMint      string
	AmountIn        uint64 // raw
	AmountOut       uint64 // raw, zero slippage
	MinAmountOut    uint64 // raw, after slippage
	AmountOutUI     decimal.Decimal
	MinAmountOutUI  decimal.Decimal
	QuoteReserveRaw uint64 // quote reserve after the swap
}

// Raydium implements Provider for Raydium AMM v4 pools.
type Raydium struct {
	rpc     solana.RPCClient
	markets *MarketCache
	logger  *zap.Logger
}

// NewRaydium creates a Raydium provider.
func NewRaydium(rpc solana.RPCClient, markets *MarketCache, logger *zap.Logger) *Raydium {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Raydium{rpc: rpc, markets: markets, logger: logger}
}

// ResolvePool looks up the pool's market and builds its keys.
func (r *Raydium) ResolvePool(ctx context.Context, id string, state *domain.PoolState) (*domain.PoolKeys, error) {
	if state == nil {
		info, err := r.rpc.GetAccountInfo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch pool %s: %w", id, err)
		}
		if info == nil {
			return nil, fmt.Errorf("fetch pool %s: account not found", id)
		}
		data, err := info.DecodeData()
		if err != nil {
			return nil, fmt.Errorf("fetch pool %s: %w", id, err)
		}
		if state, err = DecodePoolState(data); err != nil {
			return nil, fmt.Errorf("fetch pool %s: %w", id, err)
		}
	}

	mkt, err := r.markets.Get(ctx, state.MarketID)
	if err != nil {
		return nil, fmt.Errorf("resolve pool %s: %w", id, err)
	}
	return BuildPoolKeys(id, state, mkt)
}

// Reserves reads both vault token accounts in one request.
func (r *Raydium) Reserves(ctx context.Context, keys *domain.PoolKeys) (*Reserves, error) {
	infos, err := r.rpc.GetMultipleAccounts(ctx, []string{keys.BaseVault, keys.QuoteVault})
	if err != nil {
		return nil, fmt.Errorf("fetch vaults for pool %s: %w", keys.ID, err)
	}
	if len(infos) != 2 || infos[0] == nil || infos[1] == nil {
		return nil, fmt.Errorf("fetch vaults for pool %s: vault account missing", keys.ID)
	}

	var amounts [2]uint64
	for i, info := range infos {
		data, err := info.DecodeData()
		if err != nil {
			return nil, fmt.Errorf("decode vault for pool %s: %w", keys.ID, err)
		}
		acc, err := solana.DecodeTokenAccount(data)
		if err != nil {
			return nil, fmt.Errorf("decode vault for pool %s: %w", keys.ID, err)
		}
		amounts[i] = acc.Amount
	}
	return &Reserves{Base: amounts[0], Quote: amounts[1]}, nil
}

// ComputeAmountOut applies the constant-product formula with the pool fee:
//
//	out = reserveOut * inAfterFee / (reserveIn + inAfterFee)
//
// and derives the slippage-adjusted minimum output, rounded down.
func (r *Raydium) ComputeAmountOut(keys *domain.PoolKeys, reserves *Reserves, inputMint string, amountIn, slippagePercent decimal.Decimal) (*Quote, error) {
	return ComputeAmountOut(keys, reserves, inputMint, amountIn, slippagePercent)
}

// ComputeAmountOut is the stateless form of Raydium.ComputeAmountOut.
func ComputeAmountOut(keys *domain.PoolKeys, reserves *Reserves, inputMint string, amountIn, slippagePercent decimal.Decimal) (*Quote, error) {
	var (
		reserveIn, reserveOut   uint64
		inDecimals, outDecimals int
		outputMint              string
	)
	switch inputMint {
	case keys.QuoteMint:
		reserveIn, reserveOut = reserves.Quote, reserves.Base
		inDecimals, outDecimals = keys.QuoteDecimals, keys.BaseDecimals
		outputMint = keys.BaseMint
	case keys.BaseMint:
		reserveIn, reserveOut = reserves.Base, reserves.Quote
		inDecimals, outDecimals = keys.BaseDecimals, keys.QuoteDecimals
		outputMint = keys.QuoteMint
	default:
		return nil, fmt.Errorf("mint %s is not in pool %s", inputMint, keys.ID)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, ErrEmptyPool
	}
	if slippagePercent.IsNegative() || slippagePercent.GreaterThan(hundred) {
		return nil, fmt.Errorf("slippage %s%% out of range", slippagePercent)
	}

	rawIn := ToRaw(amountIn, inDecimals)
	in := decimal.NewFromBigInt(new(big.Int).SetUint64(rawIn), 0)
	inAfterFee := in.Mul(swapFeeDenominator.Sub(swapFeeNumerator)).Div(swapFeeDenominator)
	rIn := decimal.NewFromBigInt(new(big.Int).SetUint64(reserveIn), 0)
	rOut := decimal.NewFromBigInt(new(big.Int).SetUint64(reserveOut), 0)

	out := rOut.Mul(inAfterFee).Div(rIn.Add(inAfterFee)).Floor()
	minOut := out.Mul(hundred.Sub(slippagePercent)).Div(hundred).Floor()

	q := &Quote{
		InputMint:  inputMint,
		OutputMint: outputMint,
		AmountIn:   rawIn,
		AmountOut:  out.BigInt().Uint64(),
	}
	q.MinAmountOut = minOut.BigInt().Uint64()
	q.AmountOutUI = ToUI(q.AmountOut, outDecimals)
	q.MinAmountOutUI = ToUI(q.MinAmountOut, outDecimals)
	if inputMint == keys.QuoteMint {
		q.QuoteReserveRaw = reserves.Quote + rawIn
	} else {
		q.QuoteReserveRaw = reserves.Quote - q.AmountOut
	}
	return q, nil
}
