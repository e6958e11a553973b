package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func TestPositionStore_UpsertGetDelete(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	pos := &domain.Position{
		Mint:      "mint1",
		PoolID:    "pool1",
		OpenedAt:  time.Unix(1700000000, 0),
		CostBasis: decimal.RequireFromString("0.1"),
	}

	if err := store.Upsert(ctx, pos); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	pos.CostBasis = decimal.RequireFromString("0.2")
	if err := store.Upsert(ctx, pos); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if !got.CostBasis.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("CostBasis: got %s, want 0.2", got.CostBasis)
	}

	if err := store.Delete(ctx, "mint1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByMint(ctx, "mint1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "mint1"); err != nil {
		t.Errorf("Delete of absent position: %v", err)
	}
}

func TestPositionStore_GetAllOrdered(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	_ = store.Upsert(ctx, &domain.Position{Mint: "late", OpenedAt: base.Add(time.Minute)})
	_ = store.Upsert(ctx, &domain.Position{Mint: "early", OpenedAt: base})

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 2 || got[0].Mint != "early" || got[1].Mint != "late" {
		t.Errorf("Unexpected order: %+v", got)
	}
}

func TestPositionStore_InvalidInput(t *testing.T) {
	store := NewPositionStore()
	if err := store.Upsert(context.Background(), &domain.Position{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
