package market

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
)

// ErrMarketNotFound is returned when a market account does not exist on chain.
var ErrMarketNotFound = errors.New("market not found")

// MarketCache holds decoded OpenBook markets by ID.
// Markets observed on the subscription are saved ahead of the pools that reference them;
// misses fall back to a getAccountInfo lookup.
type MarketCache struct {
	rpc    solana.RPCClient
	logger *zap.Logger

	mu      sync.RWMutex
	markets map[string]*domain.MarketState
}

// NewMarketCache creates an empty cache backed by rpc for misses.
func NewMarketCache(rpc solana.RPCClient, logger *zap.Logger) *MarketCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketCache{
		rpc:     rpc,
		logger:  logger,
		markets: make(map[string]*domain.MarketState),
	}
}

// Save decodes and stores a market account observed under id.
func (c *MarketCache) Save(id string, data []byte) error {
	state, err := DecodeMarketState(data)
	if err != nil {
		return fmt.Errorf("save market %s: %w", id, err)
	}
	// ownAddress is authoritative, but subscriptions key by account address.
	state.ID = id

	c.mu.Lock()
	if _, ok := c.markets[id]; !ok {
		c.markets[id] = state
	}
	c.mu.Unlock()
	return nil
}

// Get returns the market, fetching and caching it on a miss.
func (c *MarketCache) Get(ctx context.Context, id string) (*domain.MarketState, error) {
	c.mu.RLock()
	state, ok := c.markets[id]
	c.mu.RUnlock()
	if ok {
		cp := *state
		return &cp, nil
	}

	c.logger.Debug("market cache miss", zap.String("market", id))

	info, err := c.rpc.GetAccountInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", id, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, id)
	}
	data, err := info.DecodeData()
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", id, err)
	}
	if err := c.Save(id, data); err != nil {
		return nil, err
	}

	c.mu.RLock()
	cp := *c.markets[id]
	c.mu.RUnlock()
	return &cp, nil
}

// Len returns the number of cached markets.
func (c *MarketCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}
