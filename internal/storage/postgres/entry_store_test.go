package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-raffle/internal/domain"
	pgstore "solana-raffle/internal/storage/postgres"
	"solana-raffle/internal/storage"
)

func testEntry(raffleID int64, reference string, quantity int64) *domain.Entry {
	return &domain.Entry{
		RaffleID:         raffleID,
		BuyerIdentity:    42,
		Quantity:         quantity,
		PaymentReference: reference,
		AmountPaid:       float64(quantity) * 0.1,
		PurchasedAt:      1704067200000,
		Channel:          domain.ChannelWeb,
	}
}

func TestEntryStore_RecordAndGetByReference(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	raffles := pgstore.NewRaffleStore(pool)
	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	r := testRaffle(1704153600000)
	require.NoError(t, raffles.Create(ctx, r))

	e := testEntry(r.ID, "sig1", 3)
	require.NoError(t, entries.Record(ctx, e))
	require.NotZero(t, e.ID)

	got, err := entries.GetByReference(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, e.RaffleID, got.RaffleID)
	assert.Equal(t, int64(42), got.BuyerIdentity)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, domain.ChannelWeb, got.Channel)

	// Counter moved in the same transaction.
	updated, err := raffles.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.TotalTickets)
}

func TestEntryStore_Record_DuplicateReference(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	raffles := pgstore.NewRaffleStore(pool)
	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	r := testRaffle(1704153600000)
	require.NoError(t, raffles.Create(ctx, r))

	require.NoError(t, entries.Record(ctx, testEntry(r.ID, "sig1", 2)))

	err := entries.Record(ctx, testEntry(r.ID, "sig1", 2))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The rejected insert rolled back, counter untouched.
	updated, err := raffles.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.TotalTickets)
}

func TestEntryStore_Record_UnknownRaffle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	err := entries.Record(ctx, testEntry(99999, "sig1", 1))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = entries.GetByReference(ctx, "sig1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntryStore_ConcurrentRecord_ExactlyOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	raffles := pgstore.NewRaffleStore(pool)
	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	r := testRaffle(1704153600000)
	require.NoError(t, raffles.Create(ctx, r))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- entries.Record(ctx, testEntry(r.ID, "contested", 5))
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == storage.ErrDuplicateKey:
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)

	// Conservation: counter equals the sum over entries.
	sum, err := entries.SumQuantities(ctx, r.ID)
	require.NoError(t, err)
	updated, err := raffles.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, updated.TotalTickets)
	assert.Equal(t, int64(5), sum)
}

func TestEntryStore_ListByRaffle_Order(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	raffles := pgstore.NewRaffleStore(pool)
	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	r := testRaffle(1704153600000)
	require.NoError(t, raffles.Create(ctx, r))

	for i, qty := range []int64{2, 3, 5} {
		require.NoError(t, entries.Record(ctx, testEntry(r.ID, fmt.Sprintf("sig%d", i), qty)))
	}

	list, err := entries.ListByRaffle(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, want := range []int64{2, 3, 5} {
		assert.Equal(t, want, list[i].Quantity)
	}
}

func TestEntryStore_Totals(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	raffles := pgstore.NewRaffleStore(pool)
	entries := pgstore.NewEntryStore(pool)
	ctx := context.Background()

	r := testRaffle(1704153600000)
	require.NoError(t, raffles.Create(ctx, r))

	require.NoError(t, entries.Record(ctx, testEntry(r.ID, "a", 2)))
	require.NoError(t, entries.Record(ctx, testEntry(r.ID, "b", 3)))

	tickets, revenue, err := entries.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tickets)
	assert.InDelta(t, 0.5, revenue, 0.001)
}
