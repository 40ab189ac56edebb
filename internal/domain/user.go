package domain

// User represents a verified wallet holder. Corresponds to the users table.
//
// DiscordID is set only after the wallet owner proves control of the
// private key (identity linking); until then purchases cannot be credited.
// A wallet maps to at most one Discord id and vice versa.
type User struct {
	WalletAddress string // base58 ed25519 public key, UNIQUE
	DiscordID     *int64 // linked Discord id, UNIQUE when set
	DisplayName   string // custom display name, may be empty
	AvatarURL     string // avatar reference, may be empty
	RegisteredAt  int64  // link timestamp in milliseconds
	VerifiedVia   string // channel the proof came through (web | bot)
}
