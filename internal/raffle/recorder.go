// Package raffle implements raffle lifecycle management and
// exactly-once entry recording.
package raffle

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/identity"
	"solana-raffle/internal/observability"
	"solana-raffle/internal/payment"
	"solana-raffle/internal/storage"
)

// Recorder turns a verified payment into a committed raffle entry.
// Exactly-once recording rests on the unique payment reference
// constraint in the entry store, not on any pre-check.
type Recorder struct {
	entries storage.EntryStore
	linker  *identity.Linker
	// sales receives best-effort analytics events. nil disables the sink.
	sales  storage.SaleEventStore
	logger *log.Logger
}

// NewRecorder creates an entry recorder. sales may be nil.
func NewRecorder(entries storage.EntryStore, linker *identity.Linker, sales storage.SaleEventStore, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		entries: entries,
		linker:  linker,
		sales:   sales,
		logger:  logger,
	}
}

// Record commits the verified payment as an entry. The buyer's wallet
// must already be linked to an identity. A payment reference that was
// recorded before, by this call or a concurrent one, returns
// ErrDuplicatePayment and changes nothing.
func (r *Recorder) Record(ctx context.Context, v *payment.Verified, channel string) (*domain.Entry, error) {
	user, err := r.linker.Resolve(ctx, v.Wallet)
	if err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		RaffleID:         v.RaffleID,
		BuyerIdentity:    *user.DiscordID,
		Quantity:         v.Quantity,
		PaymentReference: v.Reference,
		AmountPaid:       v.Amount,
		PurchasedAt:      time.Now().UnixMilli(),
		Channel:          channel,
	}

	if err := r.entries.Record(ctx, entry); err != nil {
		switch err {
		case storage.ErrDuplicateKey:
			observability.RecordDuplicatePayment()
			return nil, domain.ErrDuplicatePayment
		case storage.ErrNotFound:
			return nil, domain.ErrRaffleNotFound
		}
		return nil, fmt.Errorf("record entry: %w", err)
	}

	observability.RecordEntry(entry.Quantity)
	observability.RecordPaymentVerified("accepted")
	r.logger.Printf("entry %d: raffle %d, identity %d, %d tickets, ref %s",
		entry.ID, entry.RaffleID, entry.BuyerIdentity, entry.Quantity, entry.PaymentReference)

	r.recordSale(ctx, entry)

	return entry, nil
}

// recordSale mirrors the entry into the analytics sink. Failures are
// logged and swallowed; Postgres remains the source of truth.
func (r *Recorder) recordSale(ctx context.Context, entry *domain.Entry) {
	if r.sales == nil {
		return
	}

	event := &storage.SaleEvent{
		RaffleID:      entry.RaffleID,
		BuyerIdentity: entry.BuyerIdentity,
		Quantity:      entry.Quantity,
		AmountPaid:    entry.AmountPaid,
		Channel:       entry.Channel,
		TimestampMs:   entry.PurchasedAt,
	}
	if err := r.sales.Insert(ctx, event); err != nil {
		r.logger.Printf("sale event insert failed for ref %s: %v", entry.PaymentReference, err)
	}
}
