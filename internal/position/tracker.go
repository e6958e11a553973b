// Package position owns open positions and decides when they should be exited.
package position

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// pnlPlaces is the reporting precision of PNL percentages.
const pnlPlaces = 4

var hundred = decimal.NewFromInt(100)

// Valuer prices a holding in quote units assuming zero slippage.
type Valuer interface {
	ValueInQuote(ctx context.Context, pos *domain.Position, held decimal.Decimal) (decimal.Decimal, error)
}

// Config holds exit thresholds. Zero values disable the corresponding criterion.
type Config struct {
	TakeProfitPercent    decimal.Decimal
	StopLossPercent      decimal.Decimal
	MaxHoldDuration      time.Duration
	NameKeywords         []string
	NameKeywordExitAfter time.Duration
}

// Evaluation is the full outcome of one exit check.
type Evaluation struct {
	Reason     domain.ExitReason
	Exit       bool
	Valued     bool
	Value      decimal.Decimal
	PNLPercent decimal.Decimal
	Held       time.Duration
}

// Tracker holds one Position per mint. All mutation goes through its methods.
type Tracker struct {
	cfg      Config
	valuer   Valuer
	store    storage.PositionStore
	now      func() time.Time
	logger   *zap.Logger
	keywords []string

	mu        sync.RWMutex
	positions map[string]*domain.Position
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore mirrors every position change to store.
func WithStore(store storage.PositionStore) Option {
	return func(t *Tracker) { t.store = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config, valuer Valuer, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:       cfg,
		valuer:    valuer,
		now:       time.Now,
		logger:    zap.NewNop(),
		positions: make(map[string]*domain.Position),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, kw := range cfg.NameKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			t.keywords = append(t.keywords, kw)
		}
	}
	return t
}

// Load restores positions from the store. Without a store it is a no-op.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	if t.store == nil {
		return 0, nil
	}
	all, err := t.store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load positions: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range all {
		t.positions[p.Mint] = p
	}
	return len(all), nil
}

// OnAcquisitionConfirmed opens (or replaces) the position for mint.
func (t *Tracker) OnAcquisitionConfirmed(
	ctx context.Context,
	mint, poolID string,
	costBasis, minAcquired decimal.Decimal,
	meta *domain.AssetMetadataSnapshot,
) *domain.Position {
	pos := &domain.Position{
		Mint:              mint,
		PoolID:            poolID,
		OpenedAt:          t.now(),
		CostBasis:         costBasis,
		MinAcquiredAmount: minAcquired,
	}
	if meta != nil {
		pos.Name = meta.Name
		pos.Symbol = meta.Symbol
	}

	t.mu.Lock()
	t.positions[mint] = pos
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Upsert(ctx, pos); err != nil {
			t.logger.Error("persist position", zap.String("mint", mint), zap.Error(err))
		}
	}

	t.logger.Info("position opened",
		zap.String("mint", mint),
		zap.String("pool", poolID),
		zap.String("cost_basis", costBasis.String()),
		zap.String("min_acquired", minAcquired.String()),
	)

	copy := *pos
	return &copy
}

// OnDisposalConfirmed closes the position for mint and returns it.
func (t *Tracker) OnDisposalConfirmed(ctx context.Context, mint string) (*domain.Position, bool) {
	pos, ok := t.remove(ctx, mint)
	if ok {
		t.logger.Info("position closed", zap.String("mint", mint), zap.Duration("held", t.now().Sub(pos.OpenedAt)))
	}
	return pos, ok
}

// Cancel drops the position for mint without a disposal.
func (t *Tracker) Cancel(ctx context.Context, mint string) bool {
	_, ok := t.remove(ctx, mint)
	if ok {
		t.logger.Info("position cancelled", zap.String("mint", mint))
	}
	return ok
}

func (t *Tracker) remove(ctx context.Context, mint string) (*domain.Position, bool) {
	t.mu.Lock()
	pos, ok := t.positions[mint]
	delete(t.positions, mint)
	t.mu.Unlock()

	if !ok {
		return nil, false
	}
	if t.store != nil {
		if err := t.store.Delete(ctx, mint); err != nil {
			t.logger.Error("delete persisted position", zap.String("mint", mint), zap.Error(err))
		}
	}
	return pos, true
}

// Get returns a copy of the position for mint.
func (t *Tracker) Get(mint string) (*domain.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.positions[mint]
	if !ok {
		return nil, false
	}
	copy := *pos
	return &copy, true
}

// Has reports whether mint has an open position.
func (t *Tracker) Has(mint string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.positions[mint]
	return ok
}

// Open returns copies of all open positions, oldest first.
func (t *Tracker) Open() []*domain.Position {
	t.mu.RLock()
	result := make([]*domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		copy := *p
		result = append(result, &copy)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.Before(result[j].OpenedAt)
		}
		return result[i].Mint < result[j].Mint
	})
	return result
}

// EvaluateExit reports whether the position for mint should be disposed of and why.
func (t *Tracker) EvaluateExit(ctx context.Context, mint string, held decimal.Decimal) (domain.ExitReason, bool, error) {
	ev, err := t.Evaluate(ctx, mint, held)
	return ev.Reason, ev.Exit, err
}

// Evaluate runs the exit criteria in priority order: take profit, stop loss,
// max hold duration, name keyword timeout. A valuation failure skips the PNL
// criteria; the error is returned only when no time-based exit fires.
func (t *Tracker) Evaluate(ctx context.Context, mint string, held decimal.Decimal) (Evaluation, error) {
	pos, ok := t.Get(mint)
	if !ok || pos.CostBasis.IsZero() {
		return Evaluation{}, nil
	}

	ev := Evaluation{Held: t.now().Sub(pos.OpenedAt)}

	var valueErr error
	if t.valuer != nil && t.pnlEnabled() {
		value, err := t.valuer.ValueInQuote(ctx, pos, held)
		if err != nil {
			valueErr = fmt.Errorf("value position %s: %w", mint, err)
			t.logger.Warn("position valuation failed", zap.String("mint", mint), zap.Error(err))
		} else {
			ev.Valued = true
			ev.Value = value
			ev.PNLPercent = PNLPercent(pos.CostBasis, value)
		}
	}

	switch {
	case ev.Valued && t.cfg.TakeProfitPercent.IsPositive() && ev.PNLPercent.GreaterThanOrEqual(t.cfg.TakeProfitPercent):
		ev.Reason = domain.ExitReasonTakeProfit
	case ev.Valued && t.cfg.StopLossPercent.IsPositive() && ev.PNLPercent.LessThanOrEqual(t.cfg.StopLossPercent.Neg()):
		ev.Reason = domain.ExitReasonStopLoss
	case t.cfg.MaxHoldDuration > 0 && ev.Held >= t.cfg.MaxHoldDuration:
		ev.Reason = domain.ExitReasonMaxHold
	case t.cfg.NameKeywordExitAfter > 0 && ev.Held >= t.cfg.NameKeywordExitAfter && t.matchesKeyword(pos.Name):
		ev.Reason = domain.ExitReasonNameKeyword
	}

	ev.Exit = ev.Reason != ""
	if ev.Exit {
		return ev, nil
	}
	return ev, valueErr
}

func (t *Tracker) pnlEnabled() bool {
	return t.cfg.TakeProfitPercent.IsPositive() || t.cfg.StopLossPercent.IsPositive()
}

func (t *Tracker) matchesKeyword(name string) bool {
	name = strings.ToLower(name)
	for _, kw := range t.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// PNLPercent returns (value - cost) / cost * 100 rounded to four places.
// A zero cost yields zero.
func PNLPercent(cost, value decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return value.Sub(cost).Mul(hundred).DivRound(cost, pnlPlaces)
}
