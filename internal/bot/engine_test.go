package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/market"
	"solana-sniper/internal/market/markettest"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/position"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
	"solana-sniper/internal/storage/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// panickyMarket panics in Reserves while armed.
type panickyMarket struct {
	market.Provider
	armed atomic.Bool
}

func (p *panickyMarket) Reserves(ctx context.Context, keys *domain.PoolKeys) (*market.Reserves, error) {
	if p.armed.Load() {
		panic("reserves exploded")
	}
	return p.Provider.Reserves(ctx, keys)
}

// blockingExecutor confirms every submission once released.
type blockingExecutor struct {
	entered chan string
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{entered: make(chan string, 8), release: make(chan struct{})}
}

func (b *blockingExecutor) ExecuteAndConfirm(ctx context.Context, tx *solana.Transaction, signer solana.Keypair, _ solana.Blockhash) (*execution.Result, error) {
	b.calls.Add(1)
	if err := tx.Sign(signer); err != nil {
		return nil, err
	}
	b.entered <- tx.Signature()
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &execution.Result{Signature: tx.Signature(), Confirmed: true}, nil
}

type fixedGate struct {
	mu      sync.Mutex
	results []domain.FilterResult
	calls   int
}

func (g *fixedGate) Evaluate(context.Context, *domain.PoolKeys) domain.FilterResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := g.results[min(g.calls, len(g.results)-1)]
	g.calls++
	return res
}

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (r *recordingNotifier) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// failingPoolStore rejects every insert.
type failingPoolStore struct {
	*memory.PoolStore
}

func (failingPoolStore) Insert(context.Context, *domain.PoolRecord) error {
	return errors.New("db down")
}

type allowSet map[string]bool

func (a allowSet) Contains(mint string) bool { return a[mint] }

type harness struct {
	rpc     *stub.RPCClient
	pool    *markettest.Seeded
	market  *panickyMarket
	engine  *Engine
	tracker *position.Tracker
	trades  *memory.TradeRecordStore
	pools   *memory.PoolStore
	wallet  solana.Keypair
	clock   *clock
	metrics *observability.Metrics
}

func defaultConfig() Config {
	return Config{
		QuoteMint:        solana.WrappedSOLMint.String(),
		QuoteAmount:      decimal.RequireFromString("0.1"),
		BuyEnabled:       true,
		AutoSell:         true,
		MaxBuyRetries:    3,
		MaxSellRetries:   3,
		BuySlippage:      decimal.NewFromInt(20),
		SellSlippage:     decimal.NewFromInt(20),
		ComputeUnitLimit: 101337,
		ComputeUnitPrice: 421197,
	}
}

func newHarness(t *testing.T, cfg Config, pcfg position.Config, mutate func(*Deps)) *harness {
	t.Helper()

	rpc := stub.NewRPCClient()
	seeded, err := markettest.Seed(rpc, markettest.Pool{
		Label:        "bot",
		BaseReserve:  1_000_000_000_000, // 1,000,000 tokens
		QuoteReserve: 100_000_000_000,   // 100 SOL
		LpReserve:    1_000_000,
		LpSupply:     0,
	})
	require.NoError(t, err)

	wallet, err := solana.NewKeypair()
	require.NoError(t, err)

	h := &harness{
		rpc:     rpc,
		pool:    seeded,
		market:  &panickyMarket{Provider: market.NewRaydium(rpc, market.NewMarketCache(rpc, nil), nil)},
		trades:  memory.NewTradeRecordStore(),
		pools:   memory.NewPoolStore(),
		wallet:  wallet,
		clock:   &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
	}
	resolver := NewResolver(h.market, h.pools)
	h.tracker = position.NewTracker(pcfg, resolver, position.WithClock(h.clock.Now))

	deps := Deps{
		RPC:    rpc,
		Market: h.market,
		Executor: execution.NewRPCExecutor(rpc, execution.Config{
			Commitment:    solana.CommitmentConfirmed,
			PollInterval:  time.Millisecond,
			SkipPreflight: true,
		}, nil),
		Tracker:  h.tracker,
		Pools:    h.pools,
		Wallet:   wallet,
		Trades:   h.trades,
		Metrics:  h.metrics,
		Resolver: resolver,
		Now:      h.clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.engine, err = New(cfg, deps)
	require.NoError(t, err)
	return h
}

func (h *harness) mint() string { return h.pool.State.BaseMint }

func (h *harness) records(t *testing.T) []*domain.TradeRecord {
	t.Helper()
	recs, err := h.trades.GetByMint(context.Background(), h.mint())
	require.NoError(t, err)
	return recs
}

// openPosition records a confirmed acquisition and stores the pool for sell resolution.
func (h *harness) openPosition(t *testing.T, cost string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.pools.Insert(ctx, &domain.PoolRecord{
		ID:        h.pool.ID,
		BaseMint:  h.pool.State.BaseMint,
		QuoteMint: h.pool.State.QuoteMint,
		State:     *h.pool.State,
	}))
	h.tracker.OnAcquisitionConfirmed(ctx, h.mint(), h.pool.ID,
		decimal.RequireFromString(cost), decimal.NewFromInt(900), nil)
}

func failStatus(sigs ...string) func(string) *solana.SignatureStatus {
	failing := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		failing[s] = true
	}
	return func(sig string) *solana.SignatureStatus {
		if failing[sig] {
			return &solana.SignatureStatus{Err: map[string]any{"InstructionError": []any{2, "SlippageExceeded"}}}
		}
		return &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed}
	}
}

func alwaysFail(string) *solana.SignatureStatus {
	return &solana.SignatureStatus{Err: "InsufficientFunds"}
}

func TestBuy_ConfirmedOnThirdAttempt(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)
	h.rpc.StatusFunc = failStatus("sig-1", "sig-2")

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	assert.Equal(t, 3, h.rpc.SentCount())
	hashes := h.rpc.IssuedBlockhashes()
	require.Len(t, hashes, 3)
	assert.NotEqual(t, hashes[0], hashes[1])
	assert.NotEqual(t, hashes[1], hashes[2])
	assert.NotEqual(t, hashes[0], hashes[2])

	pos, ok := h.tracker.Get(h.mint())
	require.True(t, ok)
	assert.True(t, pos.CostBasis.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, pos.MinAcquiredAmount.IsPositive())
	assert.Equal(t, h.pool.ID, pos.PoolID)

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusConfirmed, recs[0].Status)
	assert.Equal(t, 3, recs[0].Attempts)
	assert.Equal(t, "sig-3", recs[0].Signature)
	assert.Equal(t, "0.1", recs[0].AmountIn)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OpenPositions))
}

func TestBuy_RetriesExhausted(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)
	h.rpc.StatusFunc = alwaysFail

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	assert.Equal(t, 3, h.rpc.SentCount())
	assert.False(t, h.tracker.Has(h.mint()))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusFailed, recs[0].Status)
	assert.Equal(t, 3, recs[0].Attempts)
	assert.Contains(t, recs[0].Error, "InsufficientFunds")
	assert.Empty(t, recs[0].Signature)
}

func TestBuy_GateRejectionAbandons(t *testing.T) {
	gate := &fixedGate{results: []domain.FilterResult{domain.Fail("pool_size: pool size 3 < min 5")}}
	h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) { d.Gate = gate })

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	assert.Zero(t, h.rpc.SentCount())
	assert.False(t, h.tracker.Has(h.mint()))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusAbandoned, recs[0].Status)
	assert.Equal(t, "pool_size: pool size 3 < min 5", recs[0].Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FilterRejections.WithLabelValues("pool_size")))
}

func TestBuy_ResolveFailureIsTerminal(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)
	state := *h.pool.State
	state.MarketID = markettest.Address("missing-market")

	h.engine.Buy(context.Background(), h.pool.ID, &state)

	assert.Zero(t, h.rpc.SentCount())
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, "resolve pool")
}

func TestBuy_MaxPoolSizeAfterSwapAbandons(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxPoolSize = decimal.NewFromInt(50)
	h := newHarness(t, cfg, position.Config{}, nil)

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	assert.Zero(t, h.rpc.SentCount())
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusAbandoned, recs[0].Status)
	assert.Contains(t, recs[0].Error, "> max 50")
}

func TestBuy_MonitorOnlySkips(t *testing.T) {
	cfg := defaultConfig()
	cfg.BuyEnabled = false
	h := newHarness(t, cfg, position.Config{}, nil)

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	assert.Zero(t, h.rpc.SentCount())
	assert.False(t, h.tracker.Has(h.mint()))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusSkipped, recs[0].Status)
	assert.NotEmpty(t, recs[0].MinAmountOut)
}

func TestBuy_ShortCircuits(t *testing.T) {
	t.Run("snipe list", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.UseSnipeList = true
		h := newHarness(t, cfg, position.Config{}, func(d *Deps) { d.SnipeList = allowSet{} })

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Zero(t, h.rpc.SentCount())
		assert.Empty(t, h.records(t))
	})

	t.Run("listed mint", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.UseSnipeList = true
		allow := allowSet{}
		h := newHarness(t, cfg, position.Config{}, func(d *Deps) { d.SnipeList = allow })
		allow[h.mint()] = true

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.True(t, h.tracker.Has(h.mint()))
	})

	t.Run("existing position", func(t *testing.T) {
		h := newHarness(t, defaultConfig(), position.Config{}, nil)
		h.openPosition(t, "0.1")

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Zero(t, h.rpc.SentCount())
		assert.Empty(t, h.records(t))
	})
}

func TestBuy_SingleAcquisitionLock(t *testing.T) {
	cfg := defaultConfig()
	cfg.OneTokenAtATime = true
	exec := newBlockingExecutor()
	h := newHarness(t, cfg, position.Config{}, func(d *Deps) { d.Executor = exec })

	second, err := markettest.Seed(h.rpc, markettest.Pool{Label: "second", BaseReserve: 1_000_000_000, QuoteReserve: 10_000_000_000})
	require.NoError(t, err)
	third, err := markettest.Seed(h.rpc, markettest.Pool{Label: "third", BaseReserve: 1_000_000_000, QuoteReserve: 10_000_000_000})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)
	}()
	<-exec.entered

	// Lock held: the second pool is dropped without any state change.
	h.engine.Buy(context.Background(), second.ID, second.State)
	assert.False(t, h.tracker.Has(second.State.BaseMint))

	close(exec.release)
	<-done
	assert.True(t, h.tracker.Has(h.mint()))

	// Released exactly once: the next acquisition proceeds.
	h.engine.Buy(context.Background(), third.ID, third.State)
	assert.True(t, h.tracker.Has(third.State.BaseMint))
	assert.EqualValues(t, 2, exec.calls.Load())
}

func TestBuy_LockReleasedAfterPanic(t *testing.T) {
	cfg := defaultConfig()
	cfg.OneTokenAtATime = true
	h := newHarness(t, cfg, position.Config{}, nil)
	h.market.armed.Store(true)

	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, "panic: reserves exploded")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.WorkflowPanics.WithLabelValues("buy")))

	h.market.armed.Store(false)
	h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)
	assert.True(t, h.tracker.Has(h.mint()))
}

func TestHandlePool_StoresPoolAndBuys(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)

	h.engine.HandlePool(context.Background(), h.pool.ID, h.pool.State)
	h.engine.Wait()

	rec, err := h.pools.GetByMint(context.Background(), h.mint())
	require.NoError(t, err)
	assert.Equal(t, h.pool.ID, rec.ID)
	assert.True(t, h.tracker.Has(h.mint()))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PoolsDiscovered))

	// A repeat notification for the same mint does not buy again.
	h.engine.HandlePool(context.Background(), h.pool.ID, h.pool.State)
	h.engine.Wait()
	assert.Equal(t, 1, h.rpc.SentCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PoolsDiscovered))
}

func TestHandlePool_StoreErrorBuysOnce(t *testing.T) {
	exec := newBlockingExecutor()
	h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) {
		d.Executor = exec
		d.Pools = failingPoolStore{memory.NewPoolStore()}
	})

	h.engine.HandlePool(context.Background(), h.pool.ID, h.pool.State)
	<-exec.entered

	// Every swap re-notifies the pool; none may start a second buy.
	h.engine.HandlePool(context.Background(), h.pool.ID, h.pool.State)
	h.engine.HandlePool(context.Background(), h.pool.ID, h.pool.State)

	close(exec.release)
	h.engine.Wait()

	assert.EqualValues(t, 1, exec.calls.Load())
	assert.True(t, h.tracker.Has(h.mint()))
	assert.Len(t, h.records(t), 1)
}

func TestBuy_Notifications(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) { d.Notifier = rec })

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Equal(t, []notify.Kind{notify.KindBuyCandidate, notify.KindBuy}, rec.kinds())
		assert.Equal(t, "sig-1", rec.last().Signature)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) { d.Notifier = rec })
		h.rpc.StatusFunc = alwaysFail

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Equal(t, []notify.Kind{notify.KindBuyCandidate, notify.KindBuyFailed}, rec.kinds())
		last := rec.last()
		assert.Equal(t, string(domain.TradeStatusFailed), last.Status)
		assert.Equal(t, h.mint(), last.Mint)
		assert.NotEmpty(t, last.Reason)
	})

	t.Run("abandoned after candidate", func(t *testing.T) {
		rec := &recordingNotifier{}
		cfg := defaultConfig()
		cfg.MaxPoolSize = decimal.NewFromInt(50)
		h := newHarness(t, cfg, position.Config{}, func(d *Deps) { d.Notifier = rec })

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Equal(t, []notify.Kind{notify.KindBuyCandidate, notify.KindBuyFailed}, rec.kinds())
		assert.Equal(t, string(domain.TradeStatusAbandoned), rec.last().Status)
	})

	t.Run("gate rejection is silent", func(t *testing.T) {
		rec := &recordingNotifier{}
		gate := &fixedGate{results: []domain.FilterResult{domain.Fail("pool_size: pool size 3 < min 5")}}
		h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) {
			d.Notifier = rec
			d.Gate = gate
		})

		h.engine.Buy(context.Background(), h.pool.ID, h.pool.State)

		assert.Empty(t, rec.kinds())
	})

	t.Run("resolve failure", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) { d.Notifier = rec })

		state := *h.pool.State
		state.MarketID = markettest.Address("missing-market")

		h.engine.Buy(context.Background(), h.pool.ID, &state)

		assert.Equal(t, []notify.Kind{notify.KindBuyFailed}, rec.kinds())
	})
}

func TestSell_Notifications(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, func(d *Deps) { d.Notifier = rec })
		h.openPosition(t, "0.1")
		h.clock.Advance(2 * time.Minute)

		h.engine.Sell(context.Background(), h.mint(), 900_000_000)

		assert.Equal(t, []notify.Kind{notify.KindExitTrigger, notify.KindSell}, rec.kinds())
		assert.Equal(t, string(domain.ExitReasonMaxHold), rec.last().Reason)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, func(d *Deps) { d.Notifier = rec })
		h.openPosition(t, "0.1")
		h.clock.Advance(2 * time.Minute)
		h.rpc.StatusFunc = alwaysFail

		h.engine.Sell(context.Background(), h.mint(), 900_000_000)

		assert.Equal(t, []notify.Kind{notify.KindExitTrigger, notify.KindSellFailed}, rec.kinds())
		assert.Equal(t, string(domain.TradeStatusFailed), rec.last().Status)
		assert.True(t, h.tracker.Has(h.mint()))
	})

	t.Run("no exit is silent", func(t *testing.T) {
		rec := &recordingNotifier{}
		h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, func(d *Deps) { d.Notifier = rec })
		h.openPosition(t, "0.1")

		h.engine.Sell(context.Background(), h.mint(), 900_000_000)

		assert.Empty(t, rec.kinds())
	})
}

func TestSell_GuardClearedAfterPanic(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, nil)
	h.openPosition(t, "0.1")
	h.clock.Advance(2 * time.Minute)
	h.market.armed.Store(true)

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	assert.False(t, h.engine.InFlight(h.mint()))
	assert.True(t, h.tracker.Has(h.mint()), "failed sell keeps the position")
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].Error, "panic")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.WorkflowPanics.WithLabelValues("sell")))

	h.market.armed.Store(false)
	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	assert.False(t, h.engine.InFlight(h.mint()))
	assert.False(t, h.tracker.Has(h.mint()))
}

func TestSell_FailureKeepsPositionAndClearsGuard(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, nil)
	h.openPosition(t, "0.1")
	h.clock.Advance(2 * time.Minute)
	h.rpc.StatusFunc = alwaysFail

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	assert.Equal(t, 3, h.rpc.SentCount())
	assert.True(t, h.tracker.Has(h.mint()))
	assert.False(t, h.engine.InFlight(h.mint()))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusFailed, recs[0].Status)
	assert.Equal(t, string(domain.ExitReasonMaxHold), recs[0].ExitReason)
}

func TestSell_NoExitLeavesPosition(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: 2 * time.Minute}, nil)
	h.openPosition(t, "0.1")
	h.clock.Advance(119 * time.Second)

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	assert.Zero(t, h.rpc.SentCount())
	assert.True(t, h.tracker.Has(h.mint()))
	assert.Empty(t, h.records(t))
}

func TestSell_TakeProfit(t *testing.T) {
	pcfg := position.Config{TakeProfitPercent: decimal.NewFromInt(40), StopLossPercent: decimal.NewFromInt(20)}
	h := newHarness(t, defaultConfig(), pcfg, nil)
	// 900 tokens are worth ~0.09 SOL against 100 SOL / 1,000,000 tokens.
	h.openPosition(t, "0.01")

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	assert.Equal(t, 1, h.rpc.SentCount())
	assert.False(t, h.tracker.Has(h.mint()))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TradeStatusConfirmed, recs[0].Status)
	assert.Equal(t, string(domain.ExitReasonTakeProfit), recs[0].ExitReason)
	assert.Equal(t, "900", recs[0].AmountIn)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ExitTriggers.WithLabelValues("take_profit")))
}

func TestSell_StopLoss(t *testing.T) {
	pcfg := position.Config{TakeProfitPercent: decimal.NewFromInt(40), StopLossPercent: decimal.NewFromInt(20)}
	h := newHarness(t, defaultConfig(), pcfg, nil)
	h.openPosition(t, "1")

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, string(domain.ExitReasonStopLoss), recs[0].ExitReason)
	assert.False(t, h.tracker.Has(h.mint()))
}

func TestSell_ConcurrentSellsShortCircuit(t *testing.T) {
	exec := newBlockingExecutor()
	h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, func(d *Deps) { d.Executor = exec })
	h.openPosition(t, "0.1")
	h.clock.Advance(2 * time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Sell(context.Background(), h.mint(), 900_000_000)
	}()
	<-exec.entered
	assert.True(t, h.engine.InFlight(h.mint()))

	h.engine.Sell(context.Background(), h.mint(), 900_000_000)

	close(exec.release)
	<-done
	assert.EqualValues(t, 1, exec.calls.Load())
	assert.False(t, h.engine.InFlight(h.mint()))
	assert.Len(t, h.records(t), 1)
}

func TestHandleWalletChange(t *testing.T) {
	newAccount := func(mint string, amount uint64) *solana.TokenAccount {
		return &solana.TokenAccount{Mint: solana.MustPublicKey(mint), Amount: amount}
	}

	t.Run("ignored", func(t *testing.T) {
		h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, nil)
		h.openPosition(t, "0.1")
		h.clock.Advance(2 * time.Minute)

		h.engine.HandleWalletChange(context.Background(), newAccount(solana.WrappedSOLMint.String(), 5))
		h.engine.HandleWalletChange(context.Background(), newAccount(h.mint(), 0))
		h.engine.Wait()

		assert.Zero(t, h.rpc.SentCount())
		assert.True(t, h.tracker.Has(h.mint()))
	})

	t.Run("auto sell off", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.AutoSell = false
		h := newHarness(t, cfg, position.Config{MaxHoldDuration: time.Minute}, nil)
		h.openPosition(t, "0.1")
		h.clock.Advance(2 * time.Minute)

		h.engine.HandleWalletChange(context.Background(), newAccount(h.mint(), 900_000_000))
		h.engine.Wait()

		assert.True(t, h.tracker.Has(h.mint()))
	})

	t.Run("sells", func(t *testing.T) {
		h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: time.Minute}, nil)
		h.openPosition(t, "0.1")
		h.clock.Advance(2 * time.Minute)

		h.engine.HandleWalletChange(context.Background(), newAccount(h.mint(), 900_000_000))
		h.engine.Wait()

		assert.False(t, h.tracker.Has(h.mint()))
	})
}

func TestCheckPositions_SellsOnDurationExit(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{MaxHoldDuration: 120 * time.Second}, nil)
	h.openPosition(t, "0.1")

	ata, err := solana.FindAssociatedTokenAddress(h.wallet.PublicKey(), solana.MustPublicKey(h.mint()))
	require.NoError(t, err)
	h.rpc.SetTokenBalance(ata.String(), 900_000_000, 6)

	h.clock.Advance(119 * time.Second)
	h.engine.CheckPositions(context.Background())
	h.engine.Wait()
	assert.True(t, h.tracker.Has(h.mint()))

	h.clock.Advance(6 * time.Second)
	h.engine.CheckPositions(context.Background())
	h.engine.Wait()
	assert.False(t, h.tracker.Has(h.mint()))

	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, string(domain.ExitReasonMaxHold), recs[0].ExitReason)
}

func TestCheckWallet(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)

	err := h.engine.CheckWallet(context.Background())
	require.ErrorIs(t, err, ErrQuoteAccountMissing)

	h.rpc.SetAccount(h.engine.quoteATA.String(), solana.TokenProgramID.String(), solana.EncodeTokenAccount(&solana.TokenAccount{
		Mint:  solana.WrappedSOLMint,
		Owner: h.wallet.PublicKey(),
	}))
	assert.NoError(t, h.engine.CheckWallet(context.Background()))
}

func TestRunGate_ConsecutiveMatches(t *testing.T) {
	cfg := defaultConfig()
	cfg.ConsecutiveMatches = 2
	cfg.FilterCheckInterval = time.Millisecond
	cfg.FilterCheckDuration = time.Second

	t.Run("passes after consecutive matches", func(t *testing.T) {
		gate := &fixedGate{results: []domain.FilterResult{
			domain.Pass(), domain.Fail("burn: LP burned 0.00% is below 90%"), domain.Pass(), domain.Pass(),
		}}
		h := newHarness(t, cfg, position.Config{}, func(d *Deps) { d.Gate = gate; d.Now = nil })

		res := h.engine.runGate(context.Background(), h.pool.Keys)

		assert.True(t, res.OK)
		assert.Equal(t, 4, gate.calls)
	})

	t.Run("window elapses", func(t *testing.T) {
		short := cfg
		short.FilterCheckDuration = 20 * time.Millisecond
		gate := &fixedGate{results: []domain.FilterResult{domain.Fail("renounced: mint authority present")}}
		h := newHarness(t, short, position.Config{}, func(d *Deps) { d.Gate = gate; d.Now = nil })

		res := h.engine.runGate(context.Background(), h.pool.Keys)

		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "no 2 consecutive filter matches")
		assert.Contains(t, res.Message, "renounced: mint authority present")
	})

	t.Run("single shot without window", func(t *testing.T) {
		gate := &fixedGate{results: []domain.FilterResult{domain.Pass()}}
		h := newHarness(t, defaultConfig(), position.Config{}, func(d *Deps) { d.Gate = gate })

		assert.True(t, h.engine.runGate(context.Background(), h.pool.Keys).OK)
		assert.Equal(t, 1, gate.calls)
	})
}

func TestResolver_ValueInQuote(t *testing.T) {
	h := newHarness(t, defaultConfig(), position.Config{}, nil)
	h.openPosition(t, "0.1")
	pos, _ := h.tracker.Get(h.mint())

	resolver := NewResolver(h.market, h.pools)
	value, err := resolver.ValueInQuote(context.Background(), pos, decimal.NewFromInt(900))
	require.NoError(t, err)

	// 100 SOL * 897.75 / (1,000,000 + 897.75), floored to lamports.
	assert.Equal(t, "0.089694476", value.String())

	_, err = resolver.Keys(context.Background(), markettest.Address("unknown"))
	assert.Error(t, err)
}
