package market

import (
	"encoding/binary"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// Known program IDs.
const (
	// RaydiumAMMV4 is the Raydium liquidity pool v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// RaydiumAuthorityV4 is the AMM v4 authority PDA shared by all pools.
	RaydiumAuthorityV4 = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	// OpenBookV3 is the OpenBook (Serum v3 fork) DEX program ID.
	OpenBookV3 = "srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX"
)

// Account sizes.
const (
	PoolStateV4Size   = 752
	MarketStateV3Size = 388
)

// Raydium AMM v4 state offsets.
const (
	offPoolStatus        = 0
	offPoolBaseDecimal   = 32
	offPoolQuoteDecimal  = 40
	offPoolOpenTime      = 224
	offPoolBaseVault     = 336
	offPoolQuoteVault    = 368
	offPoolBaseMint      = 400
	offPoolQuoteMint     = 432
	offPoolLpMint        = 464
	offPoolOpenOrders    = 496
	offPoolMarketID      = 528
	offPoolMarketProgram = 560
	offPoolTargetOrders  = 592
	offPoolWithdrawQueue = 624
	offPoolLpVault       = 656
	offPoolOwner         = 688
	offPoolLpReserve     = 720
)

// OffsetPoolQuoteMint is the quote mint offset, used in programSubscribe memcmp filters.
const OffsetPoolQuoteMint = offPoolQuoteMint

// OffsetPoolMarketProgram is the market program offset, used in programSubscribe memcmp filters.
const OffsetPoolMarketProgram = offPoolMarketProgram

// OffsetPoolStatus is the status offset, used in programSubscribe memcmp filters.
const OffsetPoolStatus = offPoolStatus

// OpenBook v3 market state offsets (after the 5-byte "serum" padding).
const (
	offMarketOwnAddress       = 13
	offMarketVaultSignerNonce = 45
	offMarketBaseMint         = 53
	offMarketQuoteMint        = 85
	offMarketBaseVault        = 117
	offMarketQuoteVault       = 165
	offMarketEventQueue       = 253
	offMarketBids             = 285
	offMarketAsks             = 317
)

// OffsetMarketQuoteMint is the quote mint offset, used in programSubscribe memcmp filters.
const OffsetMarketQuoteMint = offMarketQuoteMint

// DecodePoolState decodes a Raydium AMM v4 pool account.
func DecodePoolState(data []byte) (*domain.PoolState, error) {
	if len(data) < PoolStateV4Size {
		return nil, fmt.Errorf("pool state too short: %d bytes", len(data))
	}
	return &domain.PoolState{
		Status:          u64(data, offPoolStatus),
		BaseDecimals:    int(u64(data, offPoolBaseDecimal)),
		QuoteDecimals:   int(u64(data, offPoolQuoteDecimal)),
		OpenTime:        int64(u64(data, offPoolOpenTime)),
		BaseVault:       key(data, offPoolBaseVault),
		QuoteVault:      key(data, offPoolQuoteVault),
		BaseMint:        key(data, offPoolBaseMint),
		QuoteMint:       key(data, offPoolQuoteMint),
		LpMint:          key(data, offPoolLpMint),
		OpenOrders:      key(data, offPoolOpenOrders),
		MarketID:        key(data, offPoolMarketID),
		MarketProgramID: key(data, offPoolMarketProgram),
		TargetOrders:    key(data, offPoolTargetOrders),
		WithdrawQueue:   key(data, offPoolWithdrawQueue),
		LpVault:         key(data, offPoolLpVault),
		Owner:           key(data, offPoolOwner),
		LpReserve:       u64(data, offPoolLpReserve),
	}, nil
}

// DecodeMarketState decodes an OpenBook v3 market account.
func DecodeMarketState(data []byte) (*domain.MarketState, error) {
	if len(data) < MarketStateV3Size {
		return nil, fmt.Errorf("market state too short: %d bytes", len(data))
	}
	return &domain.MarketState{
		ID:               key(data, offMarketOwnAddress),
		VaultSignerNonce: u64(data, offMarketVaultSignerNonce),
		BaseMint:         key(data, offMarketBaseMint),
		QuoteMint:        key(data, offMarketQuoteMint),
		BaseVault:        key(data, offMarketBaseVault),
		QuoteVault:       key(data, offMarketQuoteVault),
		EventQueue:       key(data, offMarketEventQueue),
		Bids:             key(data, offMarketBids),
		Asks:             key(data, offMarketAsks),
	}, nil
}

// EncodePoolState is the inverse of DecodePoolState. Used to build fixtures.
func EncodePoolState(s *domain.PoolState) ([]byte, error) {
	data := make([]byte, PoolStateV4Size)
	putU64(data, offPoolStatus, s.Status)
	putU64(data, offPoolBaseDecimal, uint64(s.BaseDecimals))
	putU64(data, offPoolQuoteDecimal, uint64(s.QuoteDecimals))
	putU64(data, offPoolOpenTime, uint64(s.OpenTime))
	putU64(data, offPoolLpReserve, s.LpReserve)
	for off, addr := range map[int]string{
		offPoolBaseVault:     s.BaseVault,
		offPoolQuoteVault:    s.QuoteVault,
		offPoolBaseMint:      s.BaseMint,
		offPoolQuoteMint:     s.QuoteMint,
		offPoolLpMint:        s.LpMint,
		offPoolOpenOrders:    s.OpenOrders,
		offPoolMarketID:      s.MarketID,
		offPoolMarketProgram: s.MarketProgramID,
		offPoolTargetOrders:  s.TargetOrders,
		offPoolWithdrawQueue: s.WithdrawQueue,
		offPoolLpVault:       s.LpVault,
		offPoolOwner:         s.Owner,
	} {
		if err := putKey(data, off, addr); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// EncodeMarketState is the inverse of DecodeMarketState. Used to build fixtures.
func EncodeMarketState(m *domain.MarketState) ([]byte, error) {
	data := make([]byte, MarketStateV3Size)
	copy(data[0:5], "serum")
	putU64(data, offMarketVaultSignerNonce, m.VaultSignerNonce)
	for off, addr := range map[int]string{
		offMarketOwnAddress: m.ID,
		offMarketBaseMint:   m.BaseMint,
		offMarketQuoteMint:  m.QuoteMint,
		offMarketBaseVault:  m.BaseVault,
		offMarketQuoteVault: m.QuoteVault,
		offMarketEventQueue: m.EventQueue,
		offMarketBids:       m.Bids,
		offMarketAsks:       m.Asks,
	} {
		if err := putKey(data, off, addr); err != nil {
			return nil, err
		}
	}
	copy(data[MarketStateV3Size-7:], "padding")
	return data, nil
}

func u64(data []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(data[off : off+8])
}

func putU64(data []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(data[off:off+8], v)
}

func key(data []byte, off int) string {
	return solana.PublicKeyFromBytes(data[off : off+solana.PublicKeyLength]).String()
}

func putKey(data []byte, off int, addr string) error {
	if addr == "" {
		return nil
	}
	pk, err := solana.ParsePublicKey(addr)
	if err != nil {
		return err
	}
	copy(data[off:off+solana.PublicKeyLength], pk[:])
	return nil
}
