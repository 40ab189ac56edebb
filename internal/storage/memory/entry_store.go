package memory

import (
	"context"
	"sync"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// EntryStore is an in-memory implementation of storage.EntryStore. It
// holds the raffle store so Record can bump the ticket count while the
// entry lock is held. The two stores lock independently; Record takes
// the entry lock first and the raffle lock second, never the reverse,
// so the duplicate-reference check and the increment cannot interleave
// with another Record for the same reference.
type EntryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byRef   map[string]*domain.Entry
	ordered []*domain.Entry
	raffles *RaffleStore
}

// NewEntryStore creates a new in-memory entry store backed by the given
// raffle store.
func NewEntryStore(raffles *RaffleStore) *EntryStore {
	return &EntryStore{
		nextID:  1,
		byRef:   make(map[string]*domain.Entry),
		raffles: raffles,
	}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

// Record inserts the entry and bumps the raffle's ticket count.
func (s *EntryStore) Record(_ context.Context, e *domain.Entry) error {
	if e == nil || e.PaymentReference == "" || e.Quantity <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRef[e.PaymentReference]; exists {
		return storage.ErrDuplicateKey
	}

	if err := s.raffles.increment(e.RaffleID, e.Quantity); err != nil {
		return err
	}

	e.ID = s.nextID
	s.nextID++

	entryCopy := *e
	s.byRef[e.PaymentReference] = &entryCopy
	s.ordered = append(s.ordered, &entryCopy)
	return nil
}

// GetByReference retrieves an entry by payment reference.
func (s *EntryStore) GetByReference(_ context.Context, reference string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.byRef[reference]
	if !exists {
		return nil, storage.ErrNotFound
	}

	entryCopy := *e
	return &entryCopy, nil
}

// ListByRaffle retrieves all entries for a raffle in insertion order.
func (s *EntryStore) ListByRaffle(_ context.Context, raffleID int64) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Entry
	for _, e := range s.ordered {
		if e.RaffleID == raffleID {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	return result, nil
}

// SumQuantities returns the total ticket quantity recorded for a raffle.
func (s *EntryStore) SumQuantities(_ context.Context, raffleID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, e := range s.ordered {
		if e.RaffleID == raffleID {
			total += e.Quantity
		}
	}
	return total, nil
}

// Totals returns overall quantity and revenue across all entries.
func (s *EntryStore) Totals(_ context.Context) (int64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tickets int64
	var revenue float64
	for _, e := range s.ordered {
		tickets += e.Quantity
		revenue += e.AmountPaid
	}
	return tickets, revenue, nil
}
