package memory

import (
	"context"
	"sort"
	"sync"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// RaffleStore is an in-memory implementation of storage.RaffleStore.
type RaffleStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Raffle
}

// NewRaffleStore creates a new in-memory raffle store.
func NewRaffleStore() *RaffleStore {
	return &RaffleStore{
		nextID: 1,
		data:   make(map[int64]*domain.Raffle),
	}
}

// Create inserts a new raffle and assigns its sequential ID.
func (s *RaffleStore) Create(_ context.Context, r *domain.Raffle) error {
	if r == nil || r.TicketPrice <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextID
	s.nextID++

	// Store a copy to prevent external mutation
	raffleCopy := *r
	s.data[r.ID] = &raffleCopy
	return nil
}

// GetByID retrieves a raffle. Returns ErrNotFound if not exists.
func (s *RaffleStore) GetByID(_ context.Context, id int64) (*domain.Raffle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	raffleCopy := *r
	return &raffleCopy, nil
}

// ListByStatus retrieves raffles in the given status, soonest end first.
func (s *RaffleStore) ListByStatus(_ context.Context, status domain.RaffleStatus) ([]*domain.Raffle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Raffle
	for _, r := range s.data {
		if r.Status == status {
			raffleCopy := *r
			result = append(result, &raffleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EndTime != result[j].EndTime {
			return result[i].EndTime < result[j].EndTime
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// ListWithWinner retrieves decided raffles, most recently ended first.
func (s *RaffleStore) ListWithWinner(_ context.Context, limit int) ([]*domain.Raffle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Raffle
	for _, r := range s.data {
		if r.WinnerPicked() {
			raffleCopy := *r
			result = append(result, &raffleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EndTime != result[j].EndTime {
			return result[i].EndTime > result[j].EndTime
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// CloseExpired transitions active raffles past their end time to ended.
func (s *RaffleStore) CloseExpired(_ context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed int64
	for _, r := range s.data {
		if r.Status == domain.RaffleStatusActive && r.EndTime <= now {
			r.Status = domain.RaffleStatusEnded
			closed++
		}
	}

	return closed, nil
}

// SetWinner commits the winner fields, guarded by both being unset.
func (s *RaffleStore) SetWinner(_ context.Context, id int64, wallet *string, identity *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if r.WinnerPicked() {
		return storage.ErrConflict
	}

	r.WinnerWallet = wallet
	r.WinnerIdentity = identity
	r.Status = domain.RaffleStatusEnded
	return nil
}

// SetTicketCount overwrites the aggregate ticket count (reconciliation only).
func (s *RaffleStore) SetTicketCount(_ context.Context, id int64, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	r.TotalTickets = total
	return nil
}

// Count returns the number of raffles, optionally filtered by status.
func (s *RaffleStore) Count(_ context.Context, status *domain.RaffleStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status == nil {
		return int64(len(s.data)), nil
	}

	var count int64
	for _, r := range s.data {
		if r.Status == *status {
			count++
		}
	}
	return count, nil
}

// increment atomically bumps the ticket count. Used by the entry store so
// recording stays both-or-neither in memory as it is in Postgres.
func (s *RaffleStore) increment(id int64, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	r.TotalTickets += quantity
	return nil
}

// Compile-time interface check.
var _ storage.RaffleStore = (*RaffleStore)(nil)
