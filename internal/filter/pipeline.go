package filter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/metadata"
)

// Pipeline evaluates filters in order and stops at the first failure.
type Pipeline struct {
	filters       []Filter
	meta          metadata.Provider
	logger        *zap.Logger
	needsMetadata bool
}

// NewPipeline creates a pipeline. meta may be nil if no filter requires metadata.
func NewPipeline(filters []Filter, meta metadata.Provider, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{filters: filters, meta: meta, logger: logger}
	for _, f := range filters {
		if f.RequiresMetadata() {
			p.needsMetadata = true
			break
		}
	}
	return p
}

// Names returns filter names in evaluation order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	return names
}

// Evaluate runs the filters against pool. Metadata is fetched at most once;
// a fetch failure hands filters a nil snapshot.
func (p *Pipeline) Evaluate(ctx context.Context, pool *domain.PoolKeys) domain.FilterResult {
	var snapshot *domain.AssetMetadataSnapshot
	if p.needsMetadata && p.meta != nil {
		s, err := p.meta.Fetch(ctx, pool.BaseMint)
		if err != nil {
			p.logger.Debug("metadata fetch failed",
				zap.String("mint", pool.BaseMint),
				zap.Error(err))
		} else {
			snapshot = s
		}
	}

	for _, f := range p.filters {
		res, err := execute(ctx, f, pool, snapshot)
		if err != nil {
			p.logger.Debug("filter faulted",
				zap.String("mint", pool.BaseMint),
				zap.String("filter", f.Name()),
				zap.Error(err))
			return domain.Fail(fmt.Sprintf("%s: %v", f.Name(), err))
		}
		if !res.OK {
			p.logger.Debug("filter rejected pool",
				zap.String("mint", pool.BaseMint),
				zap.String("filter", f.Name()),
				zap.String("reason", res.Message))
			return res
		}
	}
	return domain.Pass()
}

// execute converts a panicking filter into an error.
func execute(ctx context.Context, f Filter, pool *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (res domain.FilterResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Execute(ctx, pool, meta)
}
