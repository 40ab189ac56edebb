package domain

// Purchase channels.
const (
	ChannelWeb = "web"
	ChannelBot = "bot"
)

// Entry represents one recorded ticket purchase. Corresponds to the
// entries table. Quantity is the entry's selection weight in the draw.
//
// PaymentReference carries the Solana transaction signature of the
// purchase transfer and is globally unique across all entries; that
// constraint is the sole idempotency guard against crediting the same
// payment twice. An entry is immutable once inserted.
type Entry struct {
	ID               int64   // PRIMARY KEY, insertion order
	RaffleID         int64   // raffle being entered
	BuyerIdentity    int64   // linked Discord id of the buyer
	Quantity         int64   // tickets bought, positive
	PaymentReference string  // transaction signature, UNIQUE
	AmountPaid       float64 // SOL paid
	PurchasedAt      int64   // Unix timestamp in milliseconds
	Channel          string  // acquisition channel (web | bot)
}
