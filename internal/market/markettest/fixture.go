// Package markettest seeds a stub RPC client with a consistent Raydium pool,
// its OpenBook market, vaults and mints.
package markettest

import (
	"crypto/sha256"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
)

// Address returns a deterministic address for label.
func Address(label string) string {
	sum := sha256.Sum256([]byte(label))
	return solana.PublicKey(sum).String()
}

// Pool describes a pool to seed. Zero values take defaults.
type Pool struct {
	Label         string
	QuoteMint     string
	BaseDecimals  int
	QuoteDecimals int
	BaseReserve   uint64 // raw
	QuoteReserve  uint64 // raw
	BaseSupply    uint64 // raw
	LpReserve     uint64 // raw LP minted at init
	LpSupply      uint64 // raw LP still in circulation
	OpenTime      int64
	MintAuthority bool
	FreezeAuth    bool
}

// Seeded is a pool written to the stub.
type Seeded struct {
	ID     string
	State  *domain.PoolState
	Market *domain.MarketState
	Keys   *domain.PoolKeys
}

// Seed writes pool, market, vault and mint accounts to rpc.
func Seed(rpc *stub.RPCClient, p Pool) (*Seeded, error) {
	if p.Label == "" {
		p.Label = "pool"
	}
	if p.QuoteMint == "" {
		p.QuoteMint = solana.WrappedSOLMint.String()
	}
	if p.BaseDecimals == 0 {
		p.BaseDecimals = 6
	}
	if p.QuoteDecimals == 0 {
		p.QuoteDecimals = 9
	}
	if p.BaseSupply == 0 {
		p.BaseSupply = p.BaseReserve
	}

	label := func(s string) string { return Address(p.Label + "/" + s) }

	mkt := &domain.MarketState{
		ID:         label("market"),
		BaseMint:   label("mint"),
		QuoteMint:  p.QuoteMint,
		BaseVault:  label("market-base-vault"),
		QuoteVault: label("market-quote-vault"),
		EventQueue: label("event-queue"),
		Bids:       label("bids"),
		Asks:       label("asks"),
	}
	nonce, err := viableNonce(mkt.ID)
	if err != nil {
		return nil, err
	}
	mkt.VaultSignerNonce = nonce

	state := &domain.PoolState{
		Status:          6,
		BaseDecimals:    p.BaseDecimals,
		QuoteDecimals:   p.QuoteDecimals,
		OpenTime:        p.OpenTime,
		BaseVault:       label("base-vault"),
		QuoteVault:      label("quote-vault"),
		BaseMint:        mkt.BaseMint,
		QuoteMint:       p.QuoteMint,
		LpMint:          label("lp-mint"),
		OpenOrders:      label("open-orders"),
		MarketID:        mkt.ID,
		MarketProgramID: market.OpenBookV3,
		TargetOrders:    label("target-orders"),
		WithdrawQueue:   label("withdraw-queue"),
		LpVault:         label("lp-vault"),
		Owner:           label("owner"),
		LpReserve:       p.LpReserve,
	}

	poolData, err := market.EncodePoolState(state)
	if err != nil {
		return nil, err
	}
	marketData, err := market.EncodeMarketState(mkt)
	if err != nil {
		return nil, err
	}
	id := label("amm")
	rpc.SetAccount(id, market.RaydiumAMMV4, poolData)
	rpc.SetAccount(mkt.ID, market.OpenBookV3, marketData)

	rpc.SetAccount(state.BaseVault, solana.TokenProgramID.String(), tokenAccount(state.BaseMint, p.BaseReserve))
	rpc.SetAccount(state.QuoteVault, solana.TokenProgramID.String(), tokenAccount(state.QuoteMint, p.QuoteReserve))

	mint := &solana.Mint{
		Supply:        p.BaseSupply,
		Decimals:      uint8(p.BaseDecimals),
		IsInitialized: true,
	}
	if p.MintAuthority {
		pk := solana.MustPublicKey(label("mint-authority"))
		mint.MintAuthority = &pk
	}
	if p.FreezeAuth {
		pk := solana.MustPublicKey(label("freeze-authority"))
		mint.FreezeAuthority = &pk
	}
	rpc.SetAccount(state.BaseMint, solana.TokenProgramID.String(), solana.EncodeMint(mint))
	rpc.SetTokenSupply(state.BaseMint, p.BaseSupply, p.BaseDecimals)
	rpc.SetTokenSupply(state.LpMint, p.LpSupply, p.BaseDecimals)

	keys, err := market.BuildPoolKeys(id, state, mkt)
	if err != nil {
		return nil, err
	}
	return &Seeded{ID: id, State: state, Market: mkt, Keys: keys}, nil
}

func tokenAccount(mint string, amount uint64) []byte {
	return solana.EncodeTokenAccount(&solana.TokenAccount{
		Mint:   solana.MustPublicKey(mint),
		Owner:  solana.MustPublicKey(market.RaydiumAuthorityV4),
		Amount: amount,
	})
}

func viableNonce(marketID string) (uint64, error) {
	for nonce := uint64(0); nonce < 256; nonce++ {
		if _, err := market.MarketAuthority(marketID, nonce, market.OpenBookV3); err == nil {
			return nonce, nil
		}
	}
	return 0, fmt.Errorf("no viable vault signer nonce for market %s", marketID)
}
