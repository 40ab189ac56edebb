package raffle_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	mrand "math/rand"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/draw"
	"solana-raffle/internal/identity"
	"solana-raffle/internal/payment"
	"solana-raffle/internal/raffle"
	"solana-raffle/internal/solana"
	"solana-raffle/internal/solana/stub"
	"solana-raffle/internal/storage/memory"
)

const flowTreasury = "TreasuryWallet11111111111111111111111111111"

// sevenOfTen yields Float64() == 0.7, so a ten-ticket raffle rolls 7.
type sevenOfTen struct{}

func (sevenOfTen) Int63() int64 { f := 0.7; return int64(f * (1 << 63)) }
func (sevenOfTen) Seed(int64)   {}

// TestFullPurchaseAndDrawFlow walks one raffle end to end: three buyers
// link wallets, pay on-chain, get recorded, and the draw lands on the
// third buyer's 5-ticket entry.
func TestFullPurchaseAndDrawFlow(t *testing.T) {
	ctx := context.Background()

	raffles := memory.NewRaffleStore()
	entries := memory.NewEntryStore(raffles)
	users := memory.NewUserStore()
	rpc := stub.NewRPCClient()

	linker := identity.NewLinker(users, identity.LinkerConfig{}, nil)
	verifier := payment.NewVerifier(rpc, nil, raffles, entries, payment.VerifierConfig{
		Treasury: flowTreasury,
	}, nil)
	recorder := raffle.NewRecorder(entries, linker, nil, nil)

	r := &domain.Raffle{
		PrizeName:   "1 SOL Giveaway",
		PrizeType:   domain.PrizeTypeSOL,
		PrizeAmount: 1.0,
		TicketPrice: 0.1,
		EndTime:     time.Now().Add(time.Hour).UnixMilli(),
		Status:      domain.RaffleStatusActive,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := raffles.Create(ctx, r); err != nil {
		t.Fatalf("create raffle: %v", err)
	}

	purchases := []struct {
		identity  int64
		reference string
		quantity  int64
	}{
		{101, "tx1", 2},
		{102, "tx2", 3},
		{103, "tx3", 5},
	}

	for _, p := range purchases {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		wallet := base58.Encode(pub)

		// Prove wallet ownership.
		msg := identity.ChallengeMessage(p.identity, wallet, time.Now().UnixMilli())
		if _, err := linker.Link(ctx, p.identity, wallet, msg, ed25519.Sign(priv, []byte(msg))); err != nil {
			t.Fatalf("link %d: %v", p.identity, err)
		}

		// Pay on-chain.
		amount := float64(p.quantity) * r.TicketPrice
		lamports := uint64(amount * solana.LamportsPerSOL)
		rpc.AddTransaction(&solana.Transaction{
			Slot:      1000,
			Signature: p.reference,
			BlockTime: time.Now().Unix(),
			Meta: &solana.TransactionMeta{
				Fee:          5000,
				PreBalances:  []uint64{10_000_000_000, 1_000_000_000},
				PostBalances: []uint64{10_000_000_000 - lamports - 5000, 1_000_000_000 + lamports},
			},
			Message: &solana.TransactionMessage{AccountKeys: []string{wallet, flowTreasury}},
		})

		v, err := verifier.Verify(ctx, r.ID, wallet, p.reference, p.quantity)
		if err != nil {
			t.Fatalf("verify %s: %v", p.reference, err)
		}
		if _, err := recorder.Record(ctx, v, domain.ChannelWeb); err != nil {
			t.Fatalf("record %s: %v", p.reference, err)
		}

		// Replaying the same payment changes nothing.
		if _, err := verifier.Verify(ctx, r.ID, wallet, p.reference, p.quantity); !errors.Is(err, domain.ErrDuplicatePayment) {
			t.Fatalf("expected ErrDuplicatePayment on replay of %s, got %v", p.reference, err)
		}
	}

	got, err := raffles.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get raffle: %v", err)
	}
	if got.TotalTickets != 10 {
		t.Fatalf("expected 10 tickets sold, got %d", got.TotalTickets)
	}

	// Roll 7 of 10: bands are [0,2), [2,5), [5,10); the third buyer wins.
	selector := draw.NewSelector(raffles, entries, users, nil, mrand.New(sevenOfTen{}), nil)
	decided, err := selector.Draw(ctx, r.ID)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if decided.WinnerIdentity == nil || *decided.WinnerIdentity != 103 {
		t.Errorf("expected winner identity 103, got %v", decided.WinnerIdentity)
	}
	if decided.Status != domain.RaffleStatusEnded {
		t.Errorf("expected ended status, got %s", decided.Status)
	}

	// Re-draw must not replace the winner.
	if _, err := selector.Draw(ctx, r.ID); !errors.Is(err, domain.ErrWinnerAlreadyPicked) {
		t.Fatalf("expected ErrWinnerAlreadyPicked, got %v", err)
	}

	// Purchases against the decided raffle are rejected.
	if _, err := verifier.Verify(ctx, r.ID, "latecomer", "tx4", 1); !errors.Is(err, domain.ErrRaffleEnded) {
		t.Fatalf("expected ErrRaffleEnded, got %v", err)
	}
}
