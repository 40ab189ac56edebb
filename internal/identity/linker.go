// Package identity links Solana wallets to Discord identities through
// ed25519 signature proofs.
package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/storage"
)

// DefaultFreshnessWindow bounds how old a signed challenge may be.
const DefaultFreshnessWindow = 10 * time.Minute

// LinkerConfig configures identity linking.
type LinkerConfig struct {
	// FreshnessWindow rejects challenges whose timestamp is older than
	// this, or further than this in the future. Zero uses the default.
	FreshnessWindow time.Duration
}

// Linker verifies wallet-ownership proofs and records the resulting
// wallet-to-Discord link.
type Linker struct {
	users  storage.UserStore
	window time.Duration
	logger *log.Logger

	// now is injectable for tests.
	now func() int64
}

// NewLinker creates an identity linker.
func NewLinker(users storage.UserStore, config LinkerConfig, logger *log.Logger) *Linker {
	window := config.FreshnessWindow
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Linker{
		users:  users,
		window: window,
		logger: logger,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// VerifySignature checks a detached ed25519 signature over message by
// the wallet's public key. The wallet must be a valid base58-encoded
// 32-byte on-curve key; program-derived addresses are rejected.
func VerifySignature(wallet, message string, signature []byte) error {
	pubKey, err := decodeWallet(wallet)
	if err != nil {
		return err
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes, want %d",
			domain.ErrInvalidSignature, len(signature), ed25519.SignatureSize)
	}
	if !ed25519.Verify(pubKey, []byte(message), signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// decodeWallet decodes a base58 wallet address into an ed25519 public
// key, rejecting off-curve points.
func decodeWallet(wallet string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: decode wallet: %v", domain.ErrInvalidSignature, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: wallet is %d bytes, want %d",
			domain.ErrInvalidSignature, len(raw), ed25519.PublicKeySize)
	}
	// Off-curve keys (PDAs) have no private key and cannot sign.
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: wallet is not on the ed25519 curve", domain.ErrInvalidSignature)
	}
	return ed25519.PublicKey(raw), nil
}

// Link verifies the signed challenge and records the wallet-to-Discord
// link. A wallet already linked to a different identity, or an identity
// already holding a different wallet, is rejected.
func (l *Linker) Link(ctx context.Context, discordID int64, wallet, message string, signature []byte) (*domain.User, error) {
	parsed, err := parseMessage(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	if parsed.DiscordID != discordID {
		return nil, fmt.Errorf("%w: message signed for a different identity", domain.ErrInvalidSignature)
	}
	if parsed.Wallet != wallet {
		return nil, fmt.Errorf("%w: message signed for a different wallet", domain.ErrInvalidSignature)
	}

	now := l.now()
	age := now - parsed.TimestampMs
	if age < -l.window.Milliseconds() || age > l.window.Milliseconds() {
		return nil, fmt.Errorf("%w: challenge timestamp outside freshness window", domain.ErrInvalidSignature)
	}

	if err := VerifySignature(wallet, message, signature); err != nil {
		return nil, err
	}

	// One wallet per identity.
	existing, err := l.users.GetByIdentity(ctx, discordID)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if existing != nil && existing.WalletAddress != wallet {
		return nil, domain.ErrWalletAlreadyLinked
	}

	// One identity per wallet. The upsert would otherwise overwrite the
	// previous link silently.
	holder, err := l.users.GetByWallet(ctx, wallet)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("check wallet: %w", err)
	}
	if holder != nil && holder.DiscordID != nil && *holder.DiscordID != discordID {
		return nil, domain.ErrWalletAlreadyLinked
	}

	user := &domain.User{
		WalletAddress: wallet,
		DiscordID:     &discordID,
		RegisteredAt:  now,
		VerifiedVia:   "signature",
	}
	if holder != nil {
		user.DisplayName = holder.DisplayName
		user.AvatarURL = holder.AvatarURL
	}

	if err := l.users.Upsert(ctx, user); err != nil {
		// One identity per wallet; the store rejects a wallet already
		// holding a different discord_id.
		if err == storage.ErrDuplicateKey {
			return nil, domain.ErrWalletAlreadyLinked
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	l.logger.Printf("linked wallet %s to identity %d", wallet, discordID)
	return user, nil
}

// Resolve returns the identity linked to a wallet, or
// ErrIdentityNotLinked when the wallet has never completed a proof.
func (l *Linker) Resolve(ctx context.Context, wallet string) (*domain.User, error) {
	user, err := l.users.GetByWallet(ctx, wallet)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, domain.ErrIdentityNotLinked
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.DiscordID == nil {
		return nil, domain.ErrIdentityNotLinked
	}
	return user, nil
}
