package filter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/market"
	"solana-sniper/internal/solana"
)

// DefaultBurnSinks are addresses whose token holdings count as burned.
var DefaultBurnSinks = []string{
	"1nc1nerator11111111111111111111111111111111",
}

// sinkHoldings sums the balances of mint held in the associated token accounts of sinks.
// Missing accounts count as zero.
func sinkHoldings(ctx context.Context, rpc solana.RPCClient, sinks []string, mint string) (uint64, error) {
	if len(sinks) == 0 {
		return 0, nil
	}
	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return 0, err
	}
	atas := make([]string, 0, len(sinks))
	for _, s := range sinks {
		owner, err := solana.ParsePublicKey(s)
		if err != nil {
			return 0, fmt.Errorf("burn sink: %w", err)
		}
		ata, err := solana.FindAssociatedTokenAddress(owner, mintKey)
		if err != nil {
			return 0, err
		}
		atas = append(atas, ata.String())
	}

	infos, err := rpc.GetMultipleAccounts(ctx, atas)
	if err != nil {
		return 0, fmt.Errorf("fetch burn sink balances: %w", err)
	}
	var total uint64
	for _, info := range infos {
		if info == nil {
			continue
		}
		data, err := info.DecodeData()
		if err != nil {
			return 0, err
		}
		acc, err := solana.DecodeTokenAccount(data)
		if err != nil {
			return 0, err
		}
		total += acc.Amount
	}
	return total, nil
}

// parseRaw parses the raw integer string of a TokenAmount.
func parseRaw(amount *solana.TokenAmount) (uint64, error) {
	if amount == nil {
		return 0, fmt.Errorf("missing token amount")
	}
	v, err := strconv.ParseUint(amount.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", amount.Amount, err)
	}
	return v, nil
}

func rawDecimal(v uint64) decimal.Decimal {
	return market.ToUI(v, 0)
}
