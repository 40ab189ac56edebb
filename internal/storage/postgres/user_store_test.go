package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-raffle/internal/domain"
	pgstore "solana-raffle/internal/storage/postgres"
	"solana-raffle/internal/storage"
)

func TestUserStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewUserStore(pool)
	ctx := context.Background()

	discordID := int64(42)
	u := &domain.User{
		WalletAddress: "Wallet1111111111111111111111111111111111111",
		DiscordID:     &discordID,
		DisplayName:   "buyer",
		AvatarURL:     "https://cdn.example.com/avatar.png",
		RegisteredAt:  1704067200000,
		VerifiedVia:   "signature",
	}
	require.NoError(t, store.Upsert(ctx, u))

	got, err := store.GetByWallet(ctx, u.WalletAddress)
	require.NoError(t, err)
	require.NotNil(t, got.DiscordID)
	assert.Equal(t, discordID, *got.DiscordID)
	assert.Equal(t, "buyer", got.DisplayName)
	assert.Equal(t, "signature", got.VerifiedVia)

	byIdentity, err := store.GetByIdentity(ctx, discordID)
	require.NoError(t, err)
	assert.Equal(t, u.WalletAddress, byIdentity.WalletAddress)
}

func TestUserStore_Upsert_Updates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewUserStore(pool)
	ctx := context.Background()

	wallet := "Wallet1111111111111111111111111111111111111"
	require.NoError(t, store.Upsert(ctx, &domain.User{WalletAddress: wallet, DisplayName: "old", RegisteredAt: 1}))
	require.NoError(t, store.Upsert(ctx, &domain.User{WalletAddress: wallet, DisplayName: "new", RegisteredAt: 2}))

	got, err := store.GetByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, "new", got.DisplayName)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserStore_Upsert_DuplicateIdentity(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewUserStore(pool)
	ctx := context.Background()

	discordID := int64(42)
	require.NoError(t, store.Upsert(ctx, &domain.User{
		WalletAddress: "WalletA111111111111111111111111111111111111",
		DiscordID:     &discordID,
		RegisteredAt:  1,
	}))

	err := store.Upsert(ctx, &domain.User{
		WalletAddress: "WalletB111111111111111111111111111111111111",
		DiscordID:     &discordID,
		RegisteredAt:  2,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestUserStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewUserStore(pool)
	ctx := context.Background()

	_, err := store.GetByWallet(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByIdentity(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
