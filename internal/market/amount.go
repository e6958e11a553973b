package market

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToUI converts a raw on-chain amount to UI units.
func ToUI(raw uint64, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), int32(-decimals))
}

// ToRaw converts a UI amount to raw units, truncating extra precision.
// Negative amounts return 0.
func ToRaw(ui decimal.Decimal, decimals int) uint64 {
	raw := ui.Shift(int32(decimals)).Floor()
	if raw.Sign() <= 0 {
		return 0
	}
	b := raw.BigInt()
	if !b.IsUint64() {
		return ^uint64(0)
	}
	return b.Uint64()
}
