package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	pgstore "solana-sniper/internal/storage/postgres"
)

// stores holds the persistence backends.
type stores struct {
	pools     storage.PoolStore
	positions storage.PositionStore
	trades    storage.TradeRecordStore
}

// openStores returns memory stores, or PostgreSQL stores for pools and
// positions plus a ClickHouse trade journal.
func openStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string, logger *zap.Logger) (*stores, func(), error) {
	if useMemory {
		logger.Info("using in-memory storage")
		return &stores{
			pools:     memory.NewPoolStore(),
			positions: memory.NewPositionStore(),
			trades:    memory.NewTradeRecordStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			logger.Warn("close clickhouse", zap.Error(err))
		}
		pool.Close()
	}

	return &stores{
		pools:     pgstore.NewPoolStore(pool),
		positions: pgstore.NewPositionStore(pool),
		trades:    chstore.NewTradeRecordStore(chConn),
	}, cleanup, nil
}
