package memory

import (
	"context"
	"errors"
	"testing"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

func activeRaffle(endTime int64) *domain.Raffle {
	return &domain.Raffle{
		PrizeName:   "Prize",
		PrizeType:   domain.PrizeTypeSOL,
		PrizeAmount: 1.0,
		TicketPrice: 0.1,
		EndTime:     endTime,
		Status:      domain.RaffleStatusActive,
		CreatedAt:   1704067200000,
	}
}

func TestRaffleStore_CreateAndGet(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	r := activeRaffle(1704153600000)
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if r.ID != 1 {
		t.Errorf("expected ID 1, got %d", r.ID)
	}

	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.PrizeName != r.PrizeName {
		t.Errorf("PrizeName mismatch: got %s, want %s", got.PrizeName, r.PrizeName)
	}

	// Mutating the returned copy must not touch the stored raffle.
	got.PrizeName = "mutated"
	again, _ := store.GetByID(ctx, r.ID)
	if again.PrizeName != "Prize" {
		t.Error("store returned a shared pointer")
	}
}

func TestRaffleStore_NotFound(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRaffleStore_ListByStatus(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	late := activeRaffle(3000)
	early := activeRaffle(1000)
	ended := activeRaffle(2000)
	ended.Status = domain.RaffleStatusEnded

	for _, r := range []*domain.Raffle{late, early, ended} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	active, err := store.ListByStatus(ctx, domain.RaffleStatusActive)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}

	if len(active) != 2 {
		t.Fatalf("expected 2 active raffles, got %d", len(active))
	}
	if active[0].EndTime != 1000 || active[1].EndTime != 3000 {
		t.Errorf("expected soonest-first ordering, got %d then %d", active[0].EndTime, active[1].EndTime)
	}
}

func TestRaffleStore_CloseExpired(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	expired := activeRaffle(1000)
	live := activeRaffle(5000)
	for _, r := range []*domain.Raffle{expired, live} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	closed, err := store.CloseExpired(ctx, 2000)
	if err != nil {
		t.Fatalf("CloseExpired failed: %v", err)
	}
	if closed != 1 {
		t.Errorf("expected 1 closed, got %d", closed)
	}

	// Repeat sweep is a no-op.
	closed, _ = store.CloseExpired(ctx, 2000)
	if closed != 0 {
		t.Errorf("expected 0 closed on repeat, got %d", closed)
	}

	got, _ := store.GetByID(ctx, expired.ID)
	if got.Status != domain.RaffleStatusEnded {
		t.Errorf("expected ended, got %s", got.Status)
	}
	got, _ = store.GetByID(ctx, live.ID)
	if got.Status != domain.RaffleStatusActive {
		t.Errorf("expected live raffle untouched, got %s", got.Status)
	}
}

func TestRaffleStore_SetWinner(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	r := activeRaffle(1000)
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	wallet := "winner"
	identity := int64(42)
	if err := store.SetWinner(ctx, r.ID, &wallet, &identity); err != nil {
		t.Fatalf("SetWinner failed: %v", err)
	}

	got, _ := store.GetByID(ctx, r.ID)
	if got.WinnerWallet == nil || *got.WinnerWallet != wallet {
		t.Errorf("winner wallet not committed")
	}
	if got.Status != domain.RaffleStatusEnded {
		t.Errorf("expected status forced to ended, got %s", got.Status)
	}

	// Second commit loses.
	other := int64(99)
	if err := store.SetWinner(ctx, r.ID, nil, &other); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
	got, _ = store.GetByID(ctx, r.ID)
	if *got.WinnerIdentity != 42 {
		t.Errorf("winner overwritten: got %d", *got.WinnerIdentity)
	}

	if err := store.SetWinner(ctx, 999, &wallet, &identity); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRaffleStore_ListWithWinner(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	identity := int64(1)
	for _, end := range []int64{1000, 3000, 2000} {
		r := activeRaffle(end)
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := store.SetWinner(ctx, r.ID, nil, &identity); err != nil {
			t.Fatalf("SetWinner failed: %v", err)
		}
	}

	winners, err := store.ListWithWinner(ctx, 2)
	if err != nil {
		t.Fatalf("ListWithWinner failed: %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("expected limit 2, got %d", len(winners))
	}
	if winners[0].EndTime != 3000 || winners[1].EndTime != 2000 {
		t.Errorf("expected most recently ended first, got %d then %d", winners[0].EndTime, winners[1].EndTime)
	}
}

func TestRaffleStore_Count(t *testing.T) {
	store := NewRaffleStore()
	ctx := context.Background()

	a := activeRaffle(1000)
	b := activeRaffle(2000)
	b.Status = domain.RaffleStatusEnded
	for _, r := range []*domain.Raffle{a, b} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	total, _ := store.Count(ctx, nil)
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}

	active := domain.RaffleStatusActive
	count, _ := store.Count(ctx, &active)
	if count != 1 {
		t.Errorf("expected 1 active, got %d", count)
	}
}
