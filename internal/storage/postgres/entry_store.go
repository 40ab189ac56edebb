package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/observability"
	"solana-raffle/internal/storage"
)

// EntryStore implements storage.EntryStore using PostgreSQL.
type EntryStore struct {
	pool *Pool
}

// NewEntryStore creates a new EntryStore.
func NewEntryStore(pool *Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

const entryColumns = `
	id, raffle_id, buyer_identity, quantity, payment_reference,
	amount_paid, purchased_at, channel
`

// Record inserts the entry and bumps the raffle's ticket count in one
// transaction. The unique index on payment_reference failing the insert
// is what makes concurrent submissions of the same reference safe; there
// is deliberately no check-then-act here.
func (s *EntryStore) Record(ctx context.Context, e *domain.Entry) error {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "record_entry", time.Since(start).Seconds())
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dbErr("begin record entry", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO entries (
			raffle_id, buyer_identity, quantity, payment_reference,
			amount_paid, purchased_at, channel
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = tx.QueryRow(ctx, insert,
		e.RaffleID,
		e.BuyerIdentity,
		e.Quantity,
		e.PaymentReference,
		e.AmountPaid,
		e.PurchasedAt,
		e.Channel,
	).Scan(&e.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return dbErr("insert entry", err)
	}

	// Atomic increment at the store level, not read-modify-write.
	tag, err := tx.Exec(ctx,
		`UPDATE raffles SET total_tickets = total_tickets + $2 WHERE id = $1`,
		e.RaffleID, e.Quantity,
	)
	if err != nil {
		return dbErr("increment ticket count", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return dbErr("commit record entry", err)
	}
	return nil
}

// GetByReference retrieves an entry by payment reference.
func (s *EntryStore) GetByReference(ctx context.Context, reference string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE payment_reference = $1`

	row := s.pool.QueryRow(ctx, query, reference)
	e, err := scanEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, dbErr("get entry by reference", err)
	}
	return e, nil
}

// ListByRaffle retrieves all entries for a raffle in insertion order.
// The draw walks entries in this order, so it must be deterministic.
func (s *EntryStore) ListByRaffle(ctx context.Context, raffleID int64) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE raffle_id = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, raffleID)
	if err != nil {
		return nil, dbErr("list entries by raffle", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SumQuantities returns the total ticket quantity recorded for a raffle.
func (s *EntryStore) SumQuantities(ctx context.Context, raffleID int64) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM entries WHERE raffle_id = $1`,
		raffleID,
	).Scan(&total)
	if err != nil {
		return 0, dbErr("sum entry quantities", err)
	}
	return total, nil
}

// Totals returns overall quantity and revenue across all entries.
func (s *EntryStore) Totals(ctx context.Context) (int64, float64, error) {
	var tickets int64
	var revenue float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(amount_paid), 0) FROM entries`,
	).Scan(&tickets, &revenue)
	if err != nil {
		return 0, 0, dbErr("entry totals", err)
	}
	return tickets, revenue, nil
}

// scanEntry scans a single row into an Entry.
func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry

	err := row.Scan(
		&e.ID,
		&e.RaffleID,
		&e.BuyerIdentity,
		&e.Quantity,
		&e.PaymentReference,
		&e.AmountPaid,
		&e.PurchasedAt,
		&e.Channel,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// scanEntries scans multiple rows into a slice of Entry.
func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}

	return entries, nil
}
