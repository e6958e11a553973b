// Package filter decides whether a newly observed pool is eligible for acquisition.
package filter

import (
	"context"

	"solana-sniper/internal/domain"
)

// Filter is one eligibility predicate.
// Execute returns an error only when the check itself could not run;
// a failed predicate is a FilterResult with OK=false.
type Filter interface {
	Name() string
	RequiresMetadata() bool
	Execute(ctx context.Context, pool *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (domain.FilterResult, error)
}
