// Package payment verifies Solana ticket payments against on-chain
// transaction data before entries are recorded.
package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/solana"
	"solana-raffle/internal/storage"
)

// feeToleranceLamports absorbs rent and fee rounding when comparing the
// treasury credit against the expected price.
const feeToleranceLamports = 10_000

// Verified is the outcome of a successful payment verification. It
// carries everything the entry recorder needs.
type Verified struct {
	Reference string
	RaffleID  int64
	Wallet    string
	Quantity  int64
	Amount    float64
	Slot      int64
	BlockTime int64
}

// VerifierConfig configures verification behavior.
type VerifierConfig struct {
	// Treasury is the wallet that must receive the payment.
	Treasury string
	// ConfirmWait is how long to wait for an unconfirmed transaction to
	// land before giving up. Zero disables waiting.
	ConfirmWait time.Duration
	// TrustUnparsed accepts transactions whose balance metadata is
	// missing instead of rejecting them. The on-chain success check
	// still applies.
	TrustUnparsed bool
}

// Verifier checks a claimed payment transaction against the chain and
// the raffle's price before the entry is recorded.
type Verifier struct {
	rpc     solana.RPCClient
	ws      solana.WSClient // optional
	raffles storage.RaffleStore
	entries storage.EntryStore
	config  VerifierConfig
	logger  *log.Logger
}

// NewVerifier creates a payment verifier. ws may be nil; without it an
// unconfirmed transaction is rejected immediately instead of waited on.
func NewVerifier(rpc solana.RPCClient, ws solana.WSClient, raffles storage.RaffleStore, entries storage.EntryStore, config VerifierConfig, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{
		rpc:     rpc,
		ws:      ws,
		raffles: raffles,
		entries: entries,
		config:  config,
		logger:  logger,
	}
}

// Verify checks that the referenced transaction is a confirmed,
// successful payment of quantity*price SOL from wallet to the treasury,
// for an active raffle. The returned Verified is only advisory until
// the entry is recorded; the unique payment reference constraint is the
// authoritative replay guard.
func (v *Verifier) Verify(ctx context.Context, raffleID int64, wallet, reference string, quantity int64) (*Verified, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if reference == "" {
		return nil, fmt.Errorf("payment reference is empty")
	}

	raffle, err := v.raffles.GetByID(ctx, raffleID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, domain.ErrRaffleNotFound
		}
		return nil, fmt.Errorf("load raffle: %w", err)
	}

	now := time.Now().UnixMilli()
	if raffle.Status != domain.RaffleStatusActive || raffle.Expired(now) {
		return nil, domain.ErrRaffleEnded
	}

	// Advisory early exit; the insert-path unique constraint is what
	// actually prevents replays under concurrency.
	existing, err := v.entries.GetByReference(ctx, reference)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("check payment reference: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicatePayment
	}

	tx, err := v.rpc.GetTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if tx == nil && v.ws != nil && v.config.ConfirmWait > 0 {
		tx, err = v.waitForConfirmation(ctx, reference)
		if err != nil {
			return nil, err
		}
	}

	if tx == nil {
		return nil, domain.ErrPaymentNotConfirmed
	}

	if tx.Failed() {
		v.logger.Printf("rejected %s: transaction failed on-chain", reference)
		return nil, domain.ErrPaymentMismatch
	}

	amount := float64(quantity) * raffle.TicketPrice
	if err := v.checkBalances(tx, wallet, amount, reference); err != nil {
		return nil, err
	}

	blockTime := tx.BlockTime
	if blockTime == 0 {
		// getTransaction's blockTime is nullable; fall back to the slot's
		// estimated production time. Best effort, zero when unknown.
		if bt, err := v.rpc.GetBlockTime(ctx, tx.Slot); err == nil && bt != nil {
			blockTime = *bt
		}
	}

	return &Verified{
		Reference: reference,
		RaffleID:  raffleID,
		Wallet:    wallet,
		Quantity:  quantity,
		Amount:    amount,
		Slot:      tx.Slot,
		BlockTime: blockTime,
	}, nil
}

// checkBalances cross-checks the transaction's lamport balance deltas
// against the expected payment. Rejects unless the treasury was
// credited at least the price and the buyer debited at least the price.
func (v *Verifier) checkBalances(tx *solana.Transaction, wallet string, amount float64, reference string) error {
	expected := int64(amount * solana.LamportsPerSOL)

	treasuryDelta, ok := tx.LamportsDelta(v.config.Treasury)
	if !ok {
		if v.config.TrustUnparsed {
			v.logger.Printf("%s: treasury balance metadata missing, accepting unchecked", reference)
			return nil
		}
		v.logger.Printf("rejected %s: treasury %s not in transaction", reference, v.config.Treasury)
		return domain.ErrPaymentMismatch
	}

	if treasuryDelta < expected-feeToleranceLamports {
		v.logger.Printf("rejected %s: treasury credited %d lamports, expected %d", reference, treasuryDelta, expected)
		return domain.ErrPaymentMismatch
	}

	buyerDelta, ok := tx.LamportsDelta(wallet)
	if !ok {
		v.logger.Printf("rejected %s: buyer %s not in transaction", reference, wallet)
		return domain.ErrPaymentMismatch
	}

	// The buyer also pays the network fee, so the debit exceeds the price.
	if buyerDelta > -expected {
		v.logger.Printf("rejected %s: buyer debited %d lamports, expected at least %d", reference, -buyerDelta, expected)
		return domain.ErrPaymentMismatch
	}

	return nil
}

// waitForConfirmation subscribes to the signature over WebSocket and
// waits for confirmation, then re-fetches the transaction for its
// balance metadata.
func (v *Verifier) waitForConfirmation(ctx context.Context, reference string) (*solana.Transaction, error) {
	waitCtx, cancel := context.WithTimeout(ctx, v.config.ConfirmWait)
	defer cancel()

	ch, err := v.ws.SubscribeSignature(waitCtx, reference)
	if err != nil {
		v.logger.Printf("%s: signature subscribe failed: %v", reference, err)
		return nil, domain.ErrPaymentNotConfirmed
	}

	select {
	case result, open := <-ch:
		if !open {
			return nil, domain.ErrPaymentNotConfirmed
		}
		if result.Err != nil {
			v.logger.Printf("rejected %s: transaction failed on-chain", reference)
			return nil, domain.ErrPaymentMismatch
		}
	case <-waitCtx.Done():
		return nil, domain.ErrPaymentNotConfirmed
	}

	tx, err := v.rpc.GetTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get transaction after confirmation: %w", err)
	}
	if tx == nil {
		// Confirmed per the subscription but not yet queryable.
		return nil, domain.ErrPaymentNotConfirmed
	}
	return tx, nil
}
