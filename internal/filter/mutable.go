package filter

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/metadata"
)

// MutableFilter rejects mutable metadata and, optionally, assets without socials.
type MutableFilter struct {
	descriptors  metadata.DescriptorFetcher
	checkMutable bool
	checkSocials bool
	logger       *zap.Logger
}

// NewMutableFilter creates a filter. descriptors is only used when checkSocials is set.
func NewMutableFilter(descriptors metadata.DescriptorFetcher, checkMutable, checkSocials bool, logger *zap.Logger) *MutableFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutableFilter{
		descriptors:  descriptors,
		checkMutable: checkMutable,
		checkSocials: checkSocials,
		logger:       logger,
	}
}

func (f *MutableFilter) Name() string { return "mutable" }

func (f *MutableFilter) RequiresMetadata() bool { return true }

func (f *MutableFilter) Execute(ctx context.Context, pool *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	if meta == nil {
		return domain.Fail("mutable: metadata unavailable"), nil
	}

	var reasons []string
	if f.checkMutable && (meta.IsMutable == nil || *meta.IsMutable) {
		reasons = append(reasons, "metadata is mutable")
	}
	if f.checkSocials && !f.hasSocials(ctx, pool.BaseMint, meta.URI) {
		reasons = append(reasons, "has no socials")
	}
	if len(reasons) > 0 {
		return domain.Fail("mutable: " + strings.Join(reasons, " and ")), nil
	}
	return domain.Pass(), nil
}

// hasSocials treats any fetch or decode failure as no socials.
func (f *MutableFilter) hasSocials(ctx context.Context, mint, uri string) bool {
	if f.descriptors == nil || uri == "" {
		return false
	}
	d, err := f.descriptors.FetchDescriptor(ctx, uri)
	if err != nil {
		f.logger.Debug("descriptor fetch failed", zap.String("mint", mint), zap.Error(err))
		return false
	}
	return d.HasSocials()
}
