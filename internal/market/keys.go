package market

import (
	"encoding/binary"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// BuildPoolKeys combines a pool account and its market into the full set of swap accounts.
func BuildPoolKeys(id string, pool *domain.PoolState, mkt *domain.MarketState) (*domain.PoolKeys, error) {
	if pool == nil || mkt == nil {
		return nil, fmt.Errorf("build pool keys %s: missing pool or market state", id)
	}
	if pool.MarketID != mkt.ID {
		return nil, fmt.Errorf("build pool keys %s: market mismatch %s != %s", id, pool.MarketID, mkt.ID)
	}

	authority, err := MarketAuthority(mkt.ID, mkt.VaultSignerNonce, pool.MarketProgramID)
	if err != nil {
		return nil, fmt.Errorf("build pool keys %s: %w", id, err)
	}

	return &domain.PoolKeys{
		ID:               id,
		ProgramID:        RaydiumAMMV4,
		Authority:        RaydiumAuthorityV4,
		BaseMint:         pool.BaseMint,
		QuoteMint:        pool.QuoteMint,
		LpMint:           pool.LpMint,
		BaseDecimals:     pool.BaseDecimals,
		QuoteDecimals:    pool.QuoteDecimals,
		BaseVault:        pool.BaseVault,
		QuoteVault:       pool.QuoteVault,
		LpVault:          pool.LpVault,
		OpenOrders:       pool.OpenOrders,
		TargetOrders:     pool.TargetOrders,
		WithdrawQueue:    pool.WithdrawQueue,
		MarketProgramID:  pool.MarketProgramID,
		MarketID:         mkt.ID,
		MarketAuthority:  authority,
		MarketBaseVault:  mkt.BaseVault,
		MarketQuoteVault: mkt.QuoteVault,
		MarketBids:       mkt.Bids,
		MarketAsks:       mkt.Asks,
		MarketEventQueue: mkt.EventQueue,
		OpenTime:         pool.OpenTime,
		LpReserve:        pool.LpReserve,
	}, nil
}

// MarketAuthority derives the OpenBook vault signer: seeds [market, nonce u64 LE].
func MarketAuthority(marketID string, nonce uint64, marketProgram string) (string, error) {
	mkt, err := solana.ParsePublicKey(marketID)
	if err != nil {
		return "", fmt.Errorf("market id: %w", err)
	}
	program, err := solana.ParsePublicKey(marketProgram)
	if err != nil {
		return "", fmt.Errorf("market program: %w", err)
	}
	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, nonce)

	pk, err := solana.CreateProgramAddress([][]byte{mkt[:], seed}, program)
	if err != nil {
		return "", fmt.Errorf("market authority: %w", err)
	}
	return pk.String(), nil
}
