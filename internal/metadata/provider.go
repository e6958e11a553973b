package metadata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// Provider fetches descriptive data for a mint.
type Provider interface {
	Fetch(ctx context.Context, mint string) (*domain.AssetMetadataSnapshot, error)
}

// RPCProvider reads the SPL mint and its Metaplex metadata account in one request.
type RPCProvider struct {
	rpc    solana.RPCClient
	logger *zap.Logger
}

// NewRPCProvider creates a new RPC-based metadata provider.
func NewRPCProvider(rpc solana.RPCClient, logger *zap.Logger) *RPCProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCProvider{rpc: rpc, logger: logger}
}

// Fetch returns a snapshot for mint. A missing mint account is an error;
// a missing or malformed Metaplex account leaves the descriptive fields empty.
func (p *RPCProvider) Fetch(ctx context.Context, mint string) (*domain.AssetMetadataSnapshot, error) {
	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return nil, err
	}
	pda, err := solana.FindMetadataAddress(mintKey)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}

	infos, err := p.rpc.GetMultipleAccounts(ctx, []string{mint, pda.String()})
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", mint, err)
	}
	if len(infos) != 2 || infos[0] == nil {
		return nil, fmt.Errorf("fetch metadata for %s: mint account not found", mint)
	}

	snap := &domain.AssetMetadataSnapshot{Mint: mint}

	mintData, err := infos[0].DecodeData()
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", mint, err)
	}
	decoded, err := solana.DecodeMint(mintData)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", mint, err)
	}
	mintAuth := decoded.MintAuthority != nil
	freezeAuth := decoded.FreezeAuthority != nil
	snap.MintAuthorityPresent = &mintAuth
	snap.FreezeAuthorityPresent = &freezeAuth
	snap.Decimals = int(decoded.Decimals)
	snap.Supply = decoded.Supply

	if infos[1] == nil {
		p.logger.Debug("no metaplex metadata", zap.String("mint", mint))
		return snap, nil
	}
	metaData, err := infos[1].DecodeData()
	if err != nil {
		return snap, nil
	}
	mp, err := ParseMetaplex(metaData)
	if err != nil {
		p.logger.Debug("parse metaplex metadata", zap.String("mint", mint), zap.Error(err))
		return snap, nil
	}
	snap.Name = mp.Name
	snap.Symbol = mp.Symbol
	snap.URI = mp.URI
	snap.IsMutable = &mp.IsMutable
	return snap, nil
}
