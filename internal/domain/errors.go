package domain

import "errors"

// Typed failures returned by the core components. Handlers translate
// these into distinct responses so callers can tell apart "retry later",
// "already recorded" and "someone beat you to it".
var (
	// ErrDuplicatePayment is returned when a payment reference has already
	// been credited to an entry.
	ErrDuplicatePayment = errors.New("payment reference already used")

	// ErrPaymentNotConfirmed is returned when the referenced transaction is
	// not yet visible on chain. The caller may retry.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed yet")

	// ErrPaymentMismatch is returned when the referenced transaction exists
	// but failed, or did not move the claimed amount from the buyer to the
	// treasury.
	ErrPaymentMismatch = errors.New("payment does not match claim")

	// ErrInvalidSignature is returned when an ownership-proof signature does
	// not verify against the wallet's public key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrWalletAlreadyLinked is returned when a wallet or identity is
	// already bound to a different counterpart.
	ErrWalletAlreadyLinked = errors.New("wallet already linked to another identity")

	// ErrIdentityNotLinked is returned when a purchase arrives from a wallet
	// with no verified identity.
	ErrIdentityNotLinked = errors.New("wallet has no linked identity")

	// ErrWinnerAlreadyPicked is returned when a winner has already been
	// committed for the raffle.
	ErrWinnerAlreadyPicked = errors.New("winner already picked")

	// ErrNoEntries is returned when a draw is requested for a raffle with
	// no recorded entries.
	ErrNoEntries = errors.New("no entries recorded")

	// ErrRaffleNotFound is returned when the referenced raffle does not exist.
	ErrRaffleNotFound = errors.New("raffle not found")

	// ErrRaffleEnded is returned when a purchase targets a raffle that has
	// already ended.
	ErrRaffleEnded = errors.New("raffle has ended")

	// ErrStoreUnavailable wraps transient store failures. The caller may
	// retry; the core never does.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnauthorized is returned for admin-only operations invoked without
	// the admin wallet.
	ErrUnauthorized = errors.New("unauthorized")
)
