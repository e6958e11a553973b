package market

import (
	"encoding/binary"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

const swapBaseInDiscriminator = 9

// SwapBaseIn builds a Raydium v4 swapBaseIn instruction: spend exactly amountIn from
// userSource and fail unless at least minAmountOut arrives in userDest.
// Direction follows the mint of userSource.
func SwapBaseIn(keys *domain.PoolKeys, userSource, userDest, owner solana.PublicKey, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	addrs := []string{
		keys.ProgramID, keys.ID, keys.Authority, keys.OpenOrders, keys.TargetOrders,
		keys.BaseVault, keys.QuoteVault, keys.MarketProgramID, keys.MarketID,
		keys.MarketBids, keys.MarketAsks, keys.MarketEventQueue,
		keys.MarketBaseVault, keys.MarketQuoteVault, keys.MarketAuthority,
	}
	pks := make([]solana.PublicKey, len(addrs))
	for i, a := range addrs {
		pk, err := solana.ParsePublicKey(a)
		if err != nil {
			return solana.Instruction{}, fmt.Errorf("swap accounts for pool %s: %w", keys.ID, err)
		}
		pks[i] = pk
	}
	program, amm, authority, openOrders, targetOrders := pks[0], pks[1], pks[2], pks[3], pks[4]
	baseVault, quoteVault, marketProgram, marketID := pks[5], pks[6], pks[7], pks[8]
	bids, asks, eventQueue := pks[9], pks[10], pks[11]
	marketBase, marketQuote, marketAuthority := pks[12], pks[13], pks[14]

	data := make([]byte, 17)
	data[0] = swapBaseInDiscriminator
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			solana.Meta(solana.TokenProgramID),
			solana.WritableMeta(amm),
			solana.Meta(authority),
			solana.WritableMeta(openOrders),
			solana.WritableMeta(targetOrders),
			solana.WritableMeta(baseVault),
			solana.WritableMeta(quoteVault),
			solana.Meta(marketProgram),
			solana.WritableMeta(marketID),
			solana.WritableMeta(bids),
			solana.WritableMeta(asks),
			solana.WritableMeta(eventQueue),
			solana.WritableMeta(marketBase),
			solana.WritableMeta(marketQuote),
			solana.Meta(marketAuthority),
			solana.WritableMeta(userSource),
			solana.WritableMeta(userDest),
			solana.SignerMeta(owner, false),
		},
		Data: data,
	}, nil
}
