package filter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
)

type countingProvider struct {
	calls atomic.Int32
	snap  *domain.AssetMetadataSnapshot
	err   error
}

func (p *countingProvider) Fetch(_ context.Context, _ string) (*domain.AssetMetadataSnapshot, error) {
	p.calls.Add(1)
	return p.snap, p.err
}

type recordingFilter struct {
	name     string
	needMeta bool
	result   domain.FilterResult
	err      error
	panicMsg string
	calls    int
	gotMeta  *domain.AssetMetadataSnapshot
}

func (f *recordingFilter) Name() string           { return f.name }
func (f *recordingFilter) RequiresMetadata() bool { return f.needMeta }
func (f *recordingFilter) Execute(_ context.Context, _ *domain.PoolKeys, meta *domain.AssetMetadataSnapshot) (domain.FilterResult, error) {
	f.calls++
	f.gotMeta = meta
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result, f.err
}

func pass(name string, needMeta bool) *recordingFilter {
	return &recordingFilter{name: name, needMeta: needMeta, result: domain.Pass()}
}

var testPool = &domain.PoolKeys{ID: "pool", BaseMint: "mint", QuoteMint: "quote", QuoteDecimals: 9}

func TestPipeline_MetadataFetchedOnce(t *testing.T) {
	provider := &countingProvider{snap: &domain.AssetMetadataSnapshot{Name: "Token"}}
	a, b, c := pass("a", true), pass("b", false), pass("c", true)

	res := NewPipeline([]Filter{a, b, c}, provider, nil).Evaluate(context.Background(), testPool)

	assert.True(t, res.OK)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Same(t, provider.snap, a.gotMeta)
	assert.Same(t, provider.snap, b.gotMeta, "snapshot shared with every filter")
	assert.Same(t, provider.snap, c.gotMeta)
}

func TestPipeline_NoMetadataWhenNotRequired(t *testing.T) {
	provider := &countingProvider{}
	res := NewPipeline([]Filter{pass("a", false), pass("b", false)}, provider, nil).
		Evaluate(context.Background(), testPool)

	assert.True(t, res.OK)
	assert.Zero(t, provider.calls.Load())
}

func TestPipeline_EmptyPasses(t *testing.T) {
	res := NewPipeline(nil, nil, nil).Evaluate(context.Background(), testPool)
	assert.True(t, res.OK)
}

func TestPipeline_FirstFailureWins(t *testing.T) {
	first := pass("first", false)
	failing := &recordingFilter{name: "failing", result: domain.Fail("nope")}
	alsoFailing := &recordingFilter{name: "also", result: domain.Fail("later")}

	res := NewPipeline([]Filter{first, failing, alsoFailing}, nil, nil).Evaluate(context.Background(), testPool)

	assert.False(t, res.OK)
	assert.Equal(t, "nope", res.Message)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Zero(t, alsoFailing.calls)
}

func TestPipeline_FilterErrorNamesFilter(t *testing.T) {
	broken := &recordingFilter{name: "burn", err: errors.New("rpc unavailable")}
	next := pass("next", false)

	res := NewPipeline([]Filter{broken, next}, nil, nil).Evaluate(context.Background(), testPool)

	assert.False(t, res.OK)
	assert.Equal(t, "burn: rpc unavailable", res.Message)
	assert.Zero(t, next.calls)
}

func TestPipeline_FilterPanicIsFailure(t *testing.T) {
	broken := &recordingFilter{name: "boom", panicMsg: "index out of range"}

	res := NewPipeline([]Filter{broken}, nil, nil).Evaluate(context.Background(), testPool)

	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "boom: panic: index out of range")
}

func TestPipeline_MetadataFailureGivesNilSnapshot(t *testing.T) {
	provider := &countingProvider{err: errors.New("timeout")}
	f := pass("a", true)
	f.gotMeta = &domain.AssetMetadataSnapshot{}

	res := NewPipeline([]Filter{f}, provider, nil).Evaluate(context.Background(), testPool)

	assert.True(t, res.OK)
	assert.Nil(t, f.gotMeta)
}

func TestPipeline_BlocklistFailsClosedWithoutMetadata(t *testing.T) {
	provider := &countingProvider{err: errors.New("metadata account missing")}
	blocklist := NewBlocklistFilter([]string{"scam"}, nil, true)

	res := NewPipeline([]Filter{blocklist}, provider, nil).Evaluate(context.Background(), testPool)

	assert.False(t, res.OK)
	assert.Equal(t, int32(1), provider.calls.Load())
}

type fixedReserves struct {
	market.Provider
	reserves market.Reserves
}

func (f fixedReserves) Reserves(context.Context, *domain.PoolKeys) (*market.Reserves, error) {
	r := f.reserves
	return &r, nil
}

func TestPipeline_PoolSizeBelowMinimumStops(t *testing.T) {
	size := NewPoolSizeFilter(fixedReserves{reserves: market.Reserves{Quote: 3_000_000_000}},
		decimal.NewFromInt(5), decimal.Zero)
	later := pass("later", false)

	res := NewPipeline([]Filter{size, later}, nil, nil).Evaluate(context.Background(), testPool)

	require.False(t, res.OK)
	assert.Contains(t, res.Message, "3")
	assert.Contains(t, res.Message, "5")
	assert.Equal(t, "pool_size: pool size 3 < min 5", res.Message)
	assert.Zero(t, later.calls)
}

func TestPipeline_Names(t *testing.T) {
	p := NewPipeline([]Filter{pass("a", false), pass("b", true)}, nil, nil)
	assert.Equal(t, []string{"a", "b"}, p.Names())
}
