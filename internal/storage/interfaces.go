package storage

import (
	"context"

	"solana-raffle/internal/domain"
)

// RaffleStore provides access to raffles storage.
type RaffleStore interface {
	// Create inserts a new raffle and assigns its sequential ID.
	Create(ctx context.Context, r *domain.Raffle) error

	// GetByID retrieves a raffle. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Raffle, error)

	// ListByStatus retrieves raffles in the given status, soonest end first.
	ListByStatus(ctx context.Context, status domain.RaffleStatus) ([]*domain.Raffle, error)

	// ListWithWinner retrieves decided raffles, most recently ended first.
	ListWithWinner(ctx context.Context, limit int) ([]*domain.Raffle, error)

	// CloseExpired transitions active raffles whose end time has passed to
	// ended, guarded by status='active' so concurrent sweeps never
	// double-transition. Returns the number of raffles closed.
	CloseExpired(ctx context.Context, now int64) (int64, error)

	// SetWinner commits the winner fields and forces status to ended,
	// guarded by both winner fields being unset. Returns ErrConflict when
	// a winner is already committed, ErrNotFound when the raffle does not
	// exist.
	SetWinner(ctx context.Context, id int64, wallet *string, identity *int64) error

	// SetTicketCount overwrites the aggregate ticket count. Used only by
	// reconciliation; normal increments happen inside EntryStore.Record.
	SetTicketCount(ctx context.Context, id int64, total int64) error

	// Count returns the number of raffles, optionally filtered by status.
	Count(ctx context.Context, status *domain.RaffleStatus) (int64, error)
}

// EntryStore provides access to entries storage.
type EntryStore interface {
	// Record inserts the entry and increments the raffle's ticket count by
	// entry.Quantity, atomically. Returns ErrDuplicateKey when the payment
	// reference is already recorded; that constraint, not any prior check,
	// is what makes recording exactly-once under races.
	Record(ctx context.Context, e *domain.Entry) error

	// GetByReference retrieves an entry by payment reference. Returns
	// ErrNotFound if not exists.
	GetByReference(ctx context.Context, reference string) (*domain.Entry, error)

	// ListByRaffle retrieves all entries for a raffle in insertion order.
	ListByRaffle(ctx context.Context, raffleID int64) ([]*domain.Entry, error)

	// SumQuantities returns the total ticket quantity recorded for a raffle.
	SumQuantities(ctx context.Context, raffleID int64) (int64, error)

	// Totals returns overall quantity and revenue across all entries.
	Totals(ctx context.Context) (tickets int64, revenue float64, err error)
}

// UserStore provides access to users storage.
type UserStore interface {
	// Upsert creates or updates the user keyed by wallet address.
	Upsert(ctx context.Context, u *domain.User) error

	// GetByWallet retrieves a user by wallet address. Returns ErrNotFound
	// if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.User, error)

	// GetByIdentity retrieves a user by Discord id. Returns ErrNotFound
	// if not exists.
	GetByIdentity(ctx context.Context, discordID int64) (*domain.User, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int64, error)
}

// SaleEvent is one analytics record of a recorded purchase.
type SaleEvent struct {
	RaffleID      int64
	BuyerIdentity int64
	Quantity      int64
	AmountPaid    float64
	Channel       string
	TimestampMs   int64
}

// RevenueBucket is an aggregated slice of sale history.
type RevenueBucket struct {
	BucketStartMs int64
	Tickets       int64
	Revenue       float64
}

// SaleEventStore provides access to the sale_events analytics sink.
// Writes are best-effort from the recorder's perspective; the durable
// store remains the source of truth for conservation.
type SaleEventStore interface {
	// Insert appends one sale event.
	Insert(ctx context.Context, e *SaleEvent) error

	// RevenueHistory aggregates sales since startMs into buckets of
	// bucketMs width, ordered by bucket start ASC.
	RevenueHistory(ctx context.Context, startMs, bucketMs int64) ([]*RevenueBucket, error)
}
