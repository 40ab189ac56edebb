package raffle

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/observability"
	"solana-raffle/internal/storage"
)

// Stats summarizes the whole system for the stats endpoint.
type Stats struct {
	TotalRaffles  int64   `json:"total_raffles"`
	ActiveRaffles int64   `json:"active_raffles"`
	TotalTickets  int64   `json:"total_tickets"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalUsers    int64   `json:"total_users"`
}

// ServiceConfig configures the raffle service.
type ServiceConfig struct {
	// AdminWallets are allowed to create raffles and pick winners.
	AdminWallets []string
}

// Service manages raffle lifecycle: creation, listing, lazy expiry and
// aggregate stats.
type Service struct {
	raffles storage.RaffleStore
	entries storage.EntryStore
	users   storage.UserStore
	// sales backs revenue history. nil disables it.
	sales  storage.SaleEventStore
	admins map[string]bool
	logger *log.Logger
}

// NewService creates a raffle service. sales may be nil.
func NewService(raffles storage.RaffleStore, entries storage.EntryStore, users storage.UserStore, sales storage.SaleEventStore, config ServiceConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	admins := make(map[string]bool, len(config.AdminWallets))
	for _, w := range config.AdminWallets {
		admins[w] = true
	}
	return &Service{
		raffles: raffles,
		entries: entries,
		users:   users,
		sales:   sales,
		admins:  admins,
		logger:  logger,
	}
}

// IsAdmin reports whether the wallet may perform admin operations.
func (s *Service) IsAdmin(wallet string) bool {
	return s.admins[wallet]
}

// Create validates and stores a new raffle. Only admin wallets may
// create raffles.
func (s *Service) Create(ctx context.Context, adminWallet string, r *domain.Raffle) (*domain.Raffle, error) {
	if !s.IsAdmin(adminWallet) {
		return nil, domain.ErrUnauthorized
	}

	if r.PrizeName == "" {
		return nil, fmt.Errorf("prize name is required")
	}
	switch r.PrizeType {
	case domain.PrizeTypeSOL, domain.PrizeTypeNFT, domain.PrizeTypeToken:
	default:
		return nil, fmt.Errorf("unknown prize type %q", r.PrizeType)
	}
	if r.TicketPrice <= 0 {
		return nil, fmt.Errorf("ticket price must be positive")
	}
	now := time.Now().UnixMilli()
	if r.EndTime <= now {
		return nil, fmt.Errorf("end time must be in the future")
	}

	r.Status = domain.RaffleStatusActive
	r.TotalTickets = 0
	r.WinnerWallet = nil
	r.WinnerIdentity = nil
	r.CreatedAt = now

	if err := s.raffles.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create raffle: %w", err)
	}

	observability.RecordRaffleCreated()
	s.logger.Printf("created raffle %d: %s, price %.4f SOL, ends %d", r.ID, r.PrizeName, r.TicketPrice, r.EndTime)
	return r, nil
}

// Get retrieves a raffle by ID.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Raffle, error) {
	r, err := s.raffles.GetByID(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, domain.ErrRaffleNotFound
		}
		return nil, fmt.Errorf("get raffle: %w", err)
	}
	return r, nil
}

// ListActive sweeps expired raffles, then returns the remaining active
// ones. The sweep makes listings correct even when the background
// scheduler lags.
func (s *Service) ListActive(ctx context.Context) ([]*domain.Raffle, error) {
	if _, err := s.CloseExpired(ctx); err != nil {
		return nil, err
	}
	list, err := s.raffles.ListByStatus(ctx, domain.RaffleStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active raffles: %w", err)
	}
	observability.UpdateActiveRaffles(int64(len(list)))
	return list, nil
}

// ListWinners returns recently decided raffles.
func (s *Service) ListWinners(ctx context.Context, limit int) ([]*domain.Raffle, error) {
	if limit <= 0 {
		limit = 20
	}
	list, err := s.raffles.ListWithWinner(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	return list, nil
}

// CloseExpired transitions all overdue active raffles to ended.
// Idempotent; safe to run from the scheduler and from listings
// concurrently.
func (s *Service) CloseExpired(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()
	closed, err := s.raffles.CloseExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("close expired raffles: %w", err)
	}
	if closed > 0 {
		observability.RecordRafflesClosed(closed)
		s.logger.Printf("closed %d expired raffles", closed)
	}
	observability.UpdateLastSweep(time.Now().Unix())
	return closed, nil
}

// Stats aggregates system-wide counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.raffles.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count raffles: %w", err)
	}

	active := domain.RaffleStatusActive
	activeCount, err := s.raffles.Count(ctx, &active)
	if err != nil {
		return nil, fmt.Errorf("count active raffles: %w", err)
	}

	tickets, revenue, err := s.entries.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("entry totals: %w", err)
	}

	userCount, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &Stats{
		TotalRaffles:  total,
		ActiveRaffles: activeCount,
		TotalTickets:  tickets,
		TotalRevenue:  revenue,
		TotalUsers:    userCount,
	}, nil
}

// RevenueHistory aggregates sales into time buckets from the analytics
// sink. Returns empty history when the sink is not configured.
func (s *Service) RevenueHistory(ctx context.Context, since, bucket time.Duration) ([]*storage.RevenueBucket, error) {
	if s.sales == nil {
		return []*storage.RevenueBucket{}, nil
	}
	startMs := time.Now().Add(-since).UnixMilli()
	buckets, err := s.sales.RevenueHistory(ctx, startMs, bucket.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("revenue history: %w", err)
	}
	return buckets, nil
}

// ReconcileTicketCounts recomputes each raffle's aggregate ticket count
// from its entries and repairs any drift. The entry log is
// authoritative; the counter is a cache.
func (s *Service) ReconcileTicketCounts(ctx context.Context) (int64, error) {
	var repaired int64
	for _, status := range []domain.RaffleStatus{domain.RaffleStatusActive, domain.RaffleStatusEnded} {
		list, err := s.raffles.ListByStatus(ctx, status)
		if err != nil {
			return repaired, fmt.Errorf("list raffles: %w", err)
		}
		for _, r := range list {
			sum, err := s.entries.SumQuantities(ctx, r.ID)
			if err != nil {
				return repaired, fmt.Errorf("sum entries for raffle %d: %w", r.ID, err)
			}
			if sum == r.TotalTickets {
				continue
			}
			if err := s.raffles.SetTicketCount(ctx, r.ID, sum); err != nil {
				return repaired, fmt.Errorf("repair raffle %d: %w", r.ID, err)
			}
			s.logger.Printf("repaired ticket count for raffle %d: %d -> %d", r.ID, r.TotalTickets, sum)
			repaired++
		}
	}
	return repaired, nil
}
