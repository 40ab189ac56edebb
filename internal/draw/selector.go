// Package draw selects raffle winners with ticket-weighted randomness
// and commits them exactly once.
package draw

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/observability"
	"solana-raffle/internal/storage"
)

// Notifier receives the decided raffle after the winner is committed.
// Implementations must not block the caller on delivery.
type Notifier interface {
	WinnerDecided(raffle *domain.Raffle, entry *domain.Entry)
}

// Selector draws winners. The compare-and-set in the raffle store, not
// the selector, is what guarantees a single winner under concurrent
// draws.
type Selector struct {
	raffles storage.RaffleStore
	entries storage.EntryStore
	users   storage.UserStore
	// notifier is optional.
	notifier Notifier
	logger   *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a winner selector. rng may be nil, in which case
// a time-seeded source is used; tests inject a seeded one.
func NewSelector(raffles storage.RaffleStore, entries storage.EntryStore, users storage.UserStore, notifier Notifier, rng *rand.Rand, logger *log.Logger) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{
		raffles:  raffles,
		entries:  entries,
		users:    users,
		notifier: notifier,
		logger:   logger,
		rng:      rng,
	}
}

// Draw picks and commits a winner for the raffle. Each entry wins with
// probability proportional to its ticket quantity. Returns the decided
// raffle; a raffle whose winner is already committed, here or by a
// concurrent draw, returns ErrWinnerAlreadyPicked.
func (s *Selector) Draw(ctx context.Context, raffleID int64) (*domain.Raffle, error) {
	raffle, err := s.raffles.GetByID(ctx, raffleID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, domain.ErrRaffleNotFound
		}
		return nil, fmt.Errorf("get raffle: %w", err)
	}

	if raffle.WinnerPicked() {
		return nil, domain.ErrWinnerAlreadyPicked
	}

	entries, err := s.entries.ListByRaffle(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrNoEntries
	}

	winner := s.pick(entries)

	var wallet *string
	user, err := s.users.GetByIdentity(ctx, winner.BuyerIdentity)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("resolve winner wallet: %w", err)
	}
	if user != nil {
		wallet = &user.WalletAddress
	}

	if err := s.raffles.SetWinner(ctx, raffleID, wallet, &winner.BuyerIdentity); err != nil {
		switch err {
		case storage.ErrConflict:
			observability.RecordDrawConflict()
			return nil, domain.ErrWinnerAlreadyPicked
		case storage.ErrNotFound:
			return nil, domain.ErrRaffleNotFound
		}
		return nil, fmt.Errorf("commit winner: %w", err)
	}

	observability.RecordDraw()
	s.logger.Printf("raffle %d: winner identity %d (%d of %d tickets)",
		raffleID, winner.BuyerIdentity, winner.Quantity, totalQuantity(entries))

	decided, err := s.raffles.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("reload raffle: %w", err)
	}

	if s.notifier != nil {
		s.notifier.WinnerDecided(decided, winner)
	}

	return decided, nil
}

// pick selects one entry, weighted by quantity, using a cumulative-sum
// walk over entries in recording order.
func (s *Selector) pick(entries []*domain.Entry) *domain.Entry {
	total := float64(totalQuantity(entries))

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	var cumulative float64
	for _, e := range entries {
		cumulative += float64(e.Quantity)
		if r < cumulative {
			return e
		}
	}
	// Float rounding can leave r at or past the final boundary.
	return entries[len(entries)-1]
}

func totalQuantity(entries []*domain.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
