package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolRecord // keyed by base mint
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.PoolRecord),
	}
}

// Insert adds a pool. Returns ErrDuplicateKey if the base mint already has a pool.
func (s *PoolStore) Insert(_ context.Context, p *domain.PoolRecord) error {
	if p == nil || p.ID == "" || p.BaseMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.BaseMint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.BaseMint] = &copy
	return nil
}

// GetByMint retrieves the pool for a base mint. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByMint(_ context.Context, mint string) (*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// Count returns the number of stored pools.
func (s *PoolStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

var _ storage.PoolStore = (*PoolStore)(nil)
