package domain

// RaffleStatus is the lifecycle state of a raffle.
type RaffleStatus string

const (
	RaffleStatusActive RaffleStatus = "active"
	RaffleStatusEnded  RaffleStatus = "ended"
)

// PrizeType identifies what a raffle pays out.
type PrizeType string

const (
	PrizeTypeSOL   PrizeType = "sol"
	PrizeTypeNFT   PrizeType = "nft"
	PrizeTypeToken PrizeType = "token"
)

// Raffle represents one prize draw. Corresponds to the raffles table.
//
// TotalTickets is an aggregate kept in sync with the entries for this
// raffle by the recorder; it is monotonically non-decreasing. The winner
// fields are written at most once, by a compare-and-set, and only
// together with status=ended.
type Raffle struct {
	ID             int64        // PRIMARY KEY, sequential
	PrizeName      string       // display name of the prize
	PrizeImageURL  string       // image reference, may be empty
	PrizeType      PrizeType    // sol | nft | token
	PrizeAmount    float64      // amount for sol/token prizes
	TicketPrice    float64      // SOL per ticket, positive
	TotalTickets   int64        // aggregate quantity across entries
	EndTime        int64        // Unix timestamp in milliseconds
	Status         RaffleStatus // active | ended
	WinnerWallet   *string      // winning wallet address (nullable)
	WinnerIdentity *int64       // winning Discord id (nullable)
	CreatedAt      int64        // record creation timestamp (ms)
}

// WinnerPicked reports whether a winner has been committed.
func (r *Raffle) WinnerPicked() bool {
	return r.WinnerWallet != nil || r.WinnerIdentity != nil
}

// Expired reports whether the raffle's end time has passed at now (ms).
func (r *Raffle) Expired(now int64) bool {
	return r.EndTime <= now
}
