package filter

import (
	"context"
	"fmt"
	"strings"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// RenouncedFilter checks mint and freeze authorities.
// It reads the metadata snapshot when one is present and the mint account otherwise.
type RenouncedFilter struct {
	rpc            solana.RPCClient
	checkRenounced bool
	checkFreezable bool
}

// NewRenouncedFilter creates a filter; each switch enables one authority check.
func NewRenouncedFilter(rpc solana.RPCClient, checkRenounced, checkFreezable bool) *RenouncedFilter {
	return &RenouncedFilter{rpc: rpc, checkRenounced: checkRenounced, checkFreezable: checkFreezable}
}

func (f *RenouncedFilter) Name() string { return "renounced" }

func (f *RenouncedFilter) RequiresMetadata() bool { return false }

func (f *RenouncedFilter) Execute(ctx context.Context, pool *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	var mintAuth, freezeAuth bool
	if meta != nil && meta.MintAuthorityPresent != nil && meta.FreezeAuthorityPresent != nil {
		mintAuth, freezeAuth = *meta.MintAuthorityPresent, *meta.FreezeAuthorityPresent
	} else {
		info, err := f.rpc.GetAccountInfo(ctx, pool.BaseMint)
		if err != nil {
			return domain.FilterResult{}, fmt.Errorf("fetch mint: %w", err)
		}
		if info == nil {
			return domain.FilterResult{}, fmt.Errorf("mint %s not found", pool.BaseMint)
		}
		data, err := info.DecodeData()
		if err != nil {
			return domain.FilterResult{}, err
		}
		mint, err := solana.DecodeMint(data)
		if err != nil {
			return domain.FilterResult{}, err
		}
		mintAuth, freezeAuth = mint.MintAuthority != nil, mint.FreezeAuthority != nil
	}

	var reasons []string
	if f.checkRenounced && mintAuth {
		reasons = append(reasons, "mint authority not renounced")
	}
	if f.checkFreezable && freezeAuth {
		reasons = append(reasons, "freeze authority present")
	}
	if len(reasons) > 0 {
		return domain.Fail("renounced: " + strings.Join(reasons, " and ")), nil
	}
	return domain.Pass(), nil
}
