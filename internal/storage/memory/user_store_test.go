package memory

import (
	"context"
	"errors"
	"testing"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

func TestUserStore_UpsertAndGet(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	discordID := int64(42)
	u := &domain.User{
		WalletAddress: "wallet1",
		DiscordID:     &discordID,
		DisplayName:   "buyer",
		RegisteredAt:  1704067200000,
		VerifiedVia:   "signature",
	}
	if err := store.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByWallet(ctx, "wallet1")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if got.DiscordID == nil || *got.DiscordID != 42 {
		t.Errorf("DiscordID mismatch: got %v", got.DiscordID)
	}

	byIdentity, err := store.GetByIdentity(ctx, 42)
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if byIdentity.WalletAddress != "wallet1" {
		t.Errorf("WalletAddress mismatch: got %s", byIdentity.WalletAddress)
	}
}

func TestUserStore_UpsertUpdates(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.User{WalletAddress: "wallet1", DisplayName: "old"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, &domain.User{WalletAddress: "wallet1", DisplayName: "new"}); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, _ := store.GetByWallet(ctx, "wallet1")
	if got.DisplayName != "new" {
		t.Errorf("expected updated display name, got %s", got.DisplayName)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestUserStore_DuplicateIdentity(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	discordID := int64(42)
	if err := store.Upsert(ctx, &domain.User{WalletAddress: "wallet1", DiscordID: &discordID}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	err := store.Upsert(ctx, &domain.User{WalletAddress: "wallet2", DiscordID: &discordID})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestUserStore_NotFound(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if _, err := store.GetByWallet(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByIdentity(ctx, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
