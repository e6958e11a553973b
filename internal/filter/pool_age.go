package filter

import (
	"context"
	"fmt"
	"time"

	"solana-sniper/internal/domain"
)

// PoolAgeFilter rejects pools opened longer than maxAge ago.
// Pools without a recorded open time pass.
type PoolAgeFilter struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewPoolAgeFilter creates a filter. now defaults to time.Now.
func NewPoolAgeFilter(maxAge time.Duration, now func() time.Time) *PoolAgeFilter {
	if now == nil {
		now = time.Now
	}
	return &PoolAgeFilter{maxAge: maxAge, now: now}
}

func (f *PoolAgeFilter) Name() string { return "pool_age" }

func (f *PoolAgeFilter) RequiresMetadata() bool { return false }

func (f *PoolAgeFilter) Execute(_ context.Context, pool *domain.PoolKeys, _ *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	if pool.OpenTime <= 0 || f.maxAge <= 0 {
		return domain.Pass(), nil
	}
	age := f.now().Sub(time.Unix(pool.OpenTime, 0))
	if age > f.maxAge {
		return domain.Fail(fmt.Sprintf("pool_age: pool age %s > max %s",
			age.Truncate(time.Second), f.maxAge)), nil
	}
	return domain.Pass(), nil
}
