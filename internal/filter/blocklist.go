package filter

import (
	"context"
	"fmt"
	"strings"

	"solana-sniper/internal/domain"
)

// BlocklistFilter rejects assets whose name or symbol is blocklisted (case-insensitive exact match).
type BlocklistFilter struct {
	names      map[string]struct{}
	symbols    map[string]struct{}
	failClosed bool
}

// NewBlocklistFilter creates a filter. failClosed rejects pools whose metadata could not be fetched.
func NewBlocklistFilter(names, symbols []string, failClosed bool) *BlocklistFilter {
	return &BlocklistFilter{
		names:      lowerSet(names),
		symbols:    lowerSet(symbols),
		failClosed: failClosed,
	}
}

func (f *BlocklistFilter) Name() string { return "blocklist" }

func (f *BlocklistFilter) RequiresMetadata() bool { return true }

func (f *BlocklistFilter) Execute(_ context.Context, _ *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	if meta == nil {
		if f.failClosed {
			return domain.Fail("blocklist: metadata unavailable"), nil
		}
		return domain.Pass(), nil
	}
	if _, ok := f.names[strings.ToLower(meta.Name)]; ok && meta.Name != "" {
		return domain.Fail(fmt.Sprintf("blocklist: name %q is blocklisted", meta.Name)), nil
	}
	if _, ok := f.symbols[strings.ToLower(meta.Symbol)]; ok && meta.Symbol != "" {
		return domain.Fail(fmt.Sprintf("blocklist: symbol %q is blocklisted", meta.Symbol)), nil
	}
	return domain.Pass(), nil
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
