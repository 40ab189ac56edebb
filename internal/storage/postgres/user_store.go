package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

const userColumns = `
	wallet_address, discord_id, display_name, avatar_url, registered_at, verified_via
`

// Upsert creates or updates the user keyed by wallet address. The unique
// index on discord_id backs the linker's one-wallet-per-identity rule;
// a conflicting identity surfaces as ErrDuplicateKey.
func (s *UserStore) Upsert(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (
			wallet_address, discord_id, display_name, avatar_url, registered_at, verified_via
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet_address) DO UPDATE SET
			discord_id = EXCLUDED.discord_id,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			registered_at = EXCLUDED.registered_at,
			verified_via = EXCLUDED.verified_via
	`

	_, err := s.pool.Exec(ctx, query,
		u.WalletAddress,
		u.DiscordID,
		u.DisplayName,
		u.AvatarURL,
		u.RegisteredAt,
		u.VerifiedVia,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return dbErr("upsert user", err)
	}
	return nil
}

// GetByWallet retrieves a user by wallet address.
func (s *UserStore) GetByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`

	row := s.pool.QueryRow(ctx, query, wallet)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, dbErr("get user by wallet", err)
	}
	return u, nil
}

// GetByIdentity retrieves a user by Discord id.
func (s *UserStore) GetByIdentity(ctx context.Context, discordID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1`

	row := s.pool.QueryRow(ctx, query, discordID)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, dbErr("get user by identity", err)
	}
	return u, nil
}

// Count returns the number of registered users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, dbErr("count users", err)
	}
	return count, nil
}

// scanUser scans a single row into a User.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.WalletAddress,
		&u.DiscordID,
		&u.DisplayName,
		&u.AvatarURL,
		&u.RegisteredAt,
		&u.VerifiedVia,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
