package memory

import (
	"context"
	"sync"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu       sync.RWMutex
	byWallet map[string]*domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byWallet: make(map[string]*domain.User),
	}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Upsert creates or updates the user keyed by wallet address. A discord
// id already held by a different wallet returns ErrDuplicateKey, matching
// the unique index in Postgres.
func (s *UserStore) Upsert(_ context.Context, u *domain.User) error {
	if u == nil || u.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.DiscordID != nil {
		for wallet, existing := range s.byWallet {
			if wallet != u.WalletAddress && existing.DiscordID != nil && *existing.DiscordID == *u.DiscordID {
				return storage.ErrDuplicateKey
			}
		}
	}

	userCopy := *u
	s.byWallet[u.WalletAddress] = &userCopy
	return nil
}

// GetByWallet retrieves a user by wallet address.
func (s *UserStore) GetByWallet(_ context.Context, wallet string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.byWallet[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

// GetByIdentity retrieves a user by Discord id.
func (s *UserStore) GetByIdentity(_ context.Context, discordID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byWallet {
		if u.DiscordID != nil && *u.DiscordID == discordID {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Count returns the number of registered users.
func (s *UserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byWallet)), nil
}
