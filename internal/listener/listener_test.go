package listener

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/market"
	"solana-sniper/internal/market/markettest"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/solana"
)

type fakeWS struct {
	mu      sync.Mutex
	filters []solana.ProgramFilter
	feeds   map[string]chan solana.ProgramNotification
	failFor string
}

func newFakeWS() *fakeWS {
	return &fakeWS{feeds: map[string]chan solana.ProgramNotification{
		market.RaydiumAMMV4:            make(chan solana.ProgramNotification, 8),
		market.OpenBookV3:              make(chan solana.ProgramNotification, 8),
		solana.TokenProgramID.String(): make(chan solana.ProgramNotification, 8),
	}}
}

func (f *fakeWS) SubscribeProgram(_ context.Context, filter solana.ProgramFilter) (<-chan solana.ProgramNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter.ProgramID == f.failFor {
		return nil, errors.New("subscribe refused")
	}
	f.filters = append(f.filters, filter)
	return f.feeds[filter.ProgramID], nil
}

func (f *fakeWS) Close() error { return nil }

func (f *fakeWS) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, flt := range f.filters {
		ids = append(ids, flt.ProgramID)
	}
	return ids
}

type recordingHandler struct {
	mu      sync.Mutex
	pools   []string
	wallets []*solana.TokenAccount
	events  chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandlePool(_ context.Context, poolID string, _ *domain.PoolState) {
	h.mu.Lock()
	h.pools = append(h.pools, poolID)
	h.mu.Unlock()
	h.events <- struct{}{}
}

func (h *recordingHandler) HandleWalletChange(_ context.Context, acct *solana.TokenAccount) {
	h.mu.Lock()
	h.wallets = append(h.wallets, acct)
	h.mu.Unlock()
	h.events <- struct{}{}
}

type recordingSink struct {
	mu    sync.Mutex
	saved map[string]int
	done  chan struct{}
}

func (s *recordingSink) Save(id string, data []byte) error {
	s.mu.Lock()
	s.saved[id] = len(data)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func notification(pubkey string, data []byte) solana.ProgramNotification {
	return solana.ProgramNotification{
		Pubkey:  pubkey,
		Account: solana.AccountInfo{Data: base64.StdEncoding.EncodeToString(data)},
	}
}

func poolData(t *testing.T, openTime int64) (string, []byte) {
	t.Helper()
	state := &domain.PoolState{
		Status:          6,
		BaseDecimals:    6,
		QuoteDecimals:   9,
		OpenTime:        openTime,
		BaseVault:       markettest.Address("base-vault"),
		QuoteVault:      markettest.Address("quote-vault"),
		BaseMint:        markettest.Address("mint"),
		QuoteMint:       solana.WrappedSOLMint.String(),
		LpMint:          markettest.Address("lp"),
		OpenOrders:      markettest.Address("oo"),
		MarketID:        markettest.Address("market"),
		MarketProgramID: market.OpenBookV3,
		TargetOrders:    markettest.Address("to"),
		WithdrawQueue:   markettest.Address("wq"),
		LpVault:         markettest.Address("lp-vault"),
		Owner:           markettest.Address("owner"),
	}
	data, err := market.EncodePoolState(state)
	require.NoError(t, err)
	return markettest.Address("amm"), data
}

func waitEvent(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestListener_Filters(t *testing.T) {
	wallet := solana.MustPublicKey(markettest.Address("wallet"))
	l := New(newFakeWS(), Config{QuoteMint: solana.WrappedSOLMint.String(), Wallet: wallet}, nil, nil, nil, nil)

	pool := l.PoolFilter()
	assert.Equal(t, market.RaydiumAMMV4, pool.ProgramID)
	assert.EqualValues(t, 752, pool.DataSize)
	require.Len(t, pool.Memcmp, 3)
	assert.EqualValues(t, 432, pool.Memcmp[0].Offset)
	assert.Equal(t, solana.WrappedSOLMint.String(), pool.Memcmp[0].Bytes)
	assert.EqualValues(t, 560, pool.Memcmp[1].Offset)
	assert.Equal(t, market.OpenBookV3, pool.Memcmp[1].Bytes)
	assert.EqualValues(t, 0, pool.Memcmp[2].Offset)
	assert.Equal(t, "21D35quxec7", pool.Memcmp[2].Bytes)

	mkt := l.MarketFilter()
	assert.EqualValues(t, 388, mkt.DataSize)
	assert.EqualValues(t, 85, mkt.Memcmp[0].Offset)

	w := l.WalletFilter()
	assert.Equal(t, solana.TokenProgramID.String(), w.ProgramID)
	assert.EqualValues(t, 165, w.DataSize)
	assert.EqualValues(t, 32, w.Memcmp[0].Offset)
	assert.Equal(t, wallet.String(), w.Memcmp[0].Bytes)
}

func TestListener_DispatchesEvents(t *testing.T) {
	ws := newFakeWS()
	handler := newRecordingHandler()
	sink := &recordingSink{saved: map[string]int{}, done: make(chan struct{}, 4)}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	start := time.Unix(1_700_000_000, 0)

	l := New(ws, Config{
		QuoteMint:       solana.WrappedSOLMint.String(),
		Wallet:          solana.MustPublicKey(markettest.Address("wallet")),
		CacheNewMarkets: true,
		StartedAt:       start,
	}, handler, sink, metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	// Opened before start: ignored.
	id, old := poolData(t, start.Unix()-10)
	ws.feeds[market.RaydiumAMMV4] <- notification(id, old)
	// Garbage: ignored.
	ws.feeds[market.RaydiumAMMV4] <- notification(id, []byte{1, 2, 3})
	// New pool: dispatched.
	_, fresh := poolData(t, start.Unix()+10)
	ws.feeds[market.RaydiumAMMV4] <- notification(id, fresh)
	waitEvent(t, handler.events)

	mktData, err := market.EncodeMarketState(&domain.MarketState{
		ID:        markettest.Address("market"),
		BaseMint:  markettest.Address("mint"),
		QuoteMint: solana.WrappedSOLMint.String(),
	})
	require.NoError(t, err)
	ws.feeds[market.OpenBookV3] <- notification(markettest.Address("market"), mktData)
	waitEvent(t, sink.done)

	acct := solana.EncodeTokenAccount(&solana.TokenAccount{
		Mint:   solana.MustPublicKey(markettest.Address("mint")),
		Owner:  solana.MustPublicKey(markettest.Address("wallet")),
		Amount: 42,
	})
	ws.feeds[solana.TokenProgramID.String()] <- notification(markettest.Address("ata"), acct)
	waitEvent(t, handler.events)

	cancel()
	require.NoError(t, <-errc)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []string{id}, handler.pools)
	require.Len(t, handler.wallets, 1)
	assert.EqualValues(t, 42, handler.wallets[0].Amount)
	assert.Equal(t, 388, sink.saved[markettest.Address("market")])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PoolsIgnored.WithLabelValues("opened_before_start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PoolsIgnored.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MarketsCached))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WalletUpdates))
}

func TestListener_SkipsMarketsWhenDisabled(t *testing.T) {
	ws := newFakeWS()
	l := New(ws, Config{QuoteMint: solana.WrappedSOLMint.String()}, newRecordingHandler(), &recordingSink{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return len(ws.subscribed()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
	assert.Equal(t, []string{market.RaydiumAMMV4, solana.TokenProgramID.String()}, ws.subscribed())
}

func TestListener_ClosedFeed(t *testing.T) {
	ws := newFakeWS()
	l := New(ws, Config{QuoteMint: solana.WrappedSOLMint.String()}, newRecordingHandler(), nil, nil, nil)

	close(ws.feeds[solana.TokenProgramID.String()])
	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestListener_SubscribeError(t *testing.T) {
	ws := newFakeWS()
	ws.failFor = market.RaydiumAMMV4
	l := New(ws, Config{QuoteMint: solana.WrappedSOLMint.String()}, newRecordingHandler(), nil, nil, nil)

	assert.Error(t, l.Run(context.Background()))
}
