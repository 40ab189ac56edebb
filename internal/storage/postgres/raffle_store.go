package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// RaffleStore implements storage.RaffleStore using PostgreSQL.
type RaffleStore struct {
	pool *Pool
}

// NewRaffleStore creates a new RaffleStore.
func NewRaffleStore(pool *Pool) *RaffleStore {
	return &RaffleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RaffleStore = (*RaffleStore)(nil)

const raffleColumns = `
	id, prize_name, prize_image_url, prize_type, prize_amount,
	ticket_price, total_tickets, end_time, status,
	winner_wallet, winner_identity, created_at
`

// Create inserts a new raffle and assigns its sequential ID.
func (s *RaffleStore) Create(ctx context.Context, r *domain.Raffle) error {
	query := `
		INSERT INTO raffles (
			prize_name, prize_image_url, prize_type, prize_amount,
			ticket_price, total_tickets, end_time, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		r.PrizeName,
		r.PrizeImageURL,
		string(r.PrizeType),
		r.PrizeAmount,
		r.TicketPrice,
		r.TotalTickets,
		r.EndTime,
		string(r.Status),
		r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return dbErr("insert raffle", err)
	}
	return nil
}

// GetByID retrieves a raffle. Returns ErrNotFound if not exists.
func (s *RaffleStore) GetByID(ctx context.Context, id int64) (*domain.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	r, err := scanRaffle(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, dbErr("get raffle by id", err)
	}
	return r, nil
}

// ListByStatus retrieves raffles in the given status, soonest end first.
func (s *RaffleStore) ListByStatus(ctx context.Context, status domain.RaffleStatus) ([]*domain.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE status = $1 ORDER BY end_time ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, dbErr("list raffles by status", err)
	}
	defer rows.Close()

	return scanRaffles(rows)
}

// ListWithWinner retrieves decided raffles, most recently ended first.
func (s *RaffleStore) ListWithWinner(ctx context.Context, limit int) ([]*domain.Raffle, error) {
	query := `
		SELECT ` + raffleColumns + `
		FROM raffles
		WHERE winner_wallet IS NOT NULL OR winner_identity IS NOT NULL
		ORDER BY end_time DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, dbErr("list raffles with winner", err)
	}
	defer rows.Close()

	return scanRaffles(rows)
}

// CloseExpired transitions active raffles past their end time to ended.
// The status='active' guard makes concurrent sweeps idempotent.
func (s *RaffleStore) CloseExpired(ctx context.Context, now int64) (int64, error) {
	query := `
		UPDATE raffles
		SET status = $1
		WHERE status = $2 AND end_time <= $3
	`

	tag, err := s.pool.Exec(ctx, query,
		string(domain.RaffleStatusEnded),
		string(domain.RaffleStatusActive),
		now,
	)
	if err != nil {
		return 0, dbErr("close expired raffles", err)
	}
	return tag.RowsAffected(), nil
}

// SetWinner commits the winner fields, guarded by both being unset.
// A second committer matches no rows and gets ErrConflict.
func (s *RaffleStore) SetWinner(ctx context.Context, id int64, wallet *string, identity *int64) error {
	query := `
		UPDATE raffles
		SET winner_wallet = $2, winner_identity = $3, status = $4
		WHERE id = $1 AND winner_wallet IS NULL AND winner_identity IS NULL
	`

	tag, err := s.pool.Exec(ctx, query, id, wallet, identity, string(domain.RaffleStatusEnded))
	if err != nil {
		return dbErr("set winner", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No rows: either the raffle is gone or a winner is already committed.
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM raffles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return dbErr("check raffle exists", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// SetTicketCount overwrites the aggregate ticket count (reconciliation only).
func (s *RaffleStore) SetTicketCount(ctx context.Context, id int64, total int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE raffles SET total_tickets = $2 WHERE id = $1`, id, total)
	if err != nil {
		return dbErr("set ticket count", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of raffles, optionally filtered by status.
func (s *RaffleStore) Count(ctx context.Context, status *domain.RaffleStatus) (int64, error) {
	var (
		count int64
		err   error
	)
	if status == nil {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM raffles`).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM raffles WHERE status = $1`, string(*status)).Scan(&count)
	}
	if err != nil {
		return 0, dbErr("count raffles", err)
	}
	return count, nil
}

// scanRaffle scans a single row into a Raffle.
func scanRaffle(row pgx.Row) (*domain.Raffle, error) {
	var r domain.Raffle
	var prizeType, status string

	err := row.Scan(
		&r.ID,
		&r.PrizeName,
		&r.PrizeImageURL,
		&prizeType,
		&r.PrizeAmount,
		&r.TicketPrice,
		&r.TotalTickets,
		&r.EndTime,
		&status,
		&r.WinnerWallet,
		&r.WinnerIdentity,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PrizeType = domain.PrizeType(prizeType)
	r.Status = domain.RaffleStatus(status)
	return &r, nil
}

// scanRaffles scans multiple rows into a slice of Raffle.
func scanRaffles(rows pgx.Rows) ([]*domain.Raffle, error) {
	var raffles []*domain.Raffle

	for rows.Next() {
		r, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raffle row: %w", err)
		}
		raffles = append(raffles, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raffle rows: %w", err)
	}

	return raffles, nil
}
