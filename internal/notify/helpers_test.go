package notify

import (
	"time"

	"solana-raffle/internal/domain"
)

func testRaffle(winnerWallet *string) *domain.Raffle {
	identity := int64(42)
	r := &domain.Raffle{
		ID:           1,
		PrizeName:    "1 SOL Giveaway",
		PrizeType:    domain.PrizeTypeSOL,
		PrizeAmount:  1.0,
		TicketPrice:  0.1,
		TotalTickets: 10,
		EndTime:      time.Now().Add(time.Hour).UnixMilli(),
		Status:       domain.RaffleStatusEnded,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if winnerWallet != nil {
		r.WinnerWallet = winnerWallet
		r.WinnerIdentity = &identity
	}
	return r
}

func testEntry() *domain.Entry {
	return &domain.Entry{
		ID:               1,
		RaffleID:         1,
		BuyerIdentity:    42,
		Quantity:         5,
		PaymentReference: "tx3",
		AmountPaid:       0.5,
		PurchasedAt:      time.Now().UnixMilli(),
		Channel:          domain.ChannelWeb,
	}
}
