package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDiscord_WinnerDecided(t *testing.T) {
	received := make(chan webhookPayload, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}

		var payload webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(server.URL, "", nil)
	wallet := "WinnerWallet11111111111111111111111111111111"
	d.WinnerDecided(testRaffle(&wallet), testEntry())

	select {
	case payload := <-received:
		if len(payload.Embeds) != 1 {
			t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
		}
		e := payload.Embeds[0]
		if e.Title != "🎊 Raffle Ended!" {
			t.Errorf("unexpected title %q", e.Title)
		}
		if !strings.Contains(e.Fields[0].Value, wallet) {
			t.Errorf("winner field missing wallet: %q", e.Fields[0].Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestDiscord_RaffleCreated(t *testing.T) {
	received := make(chan webhookPayload, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(server.URL, "https://raffle.example.com", nil)
	d.RaffleCreated(testRaffle(nil))

	select {
	case payload := <-received:
		e := payload.Embeds[0]
		if e.Title != "🎉 New Raffle Created!" {
			t.Errorf("unexpected title %q", e.Title)
		}
		var hasLink bool
		for _, f := range e.Fields {
			if strings.Contains(f.Value, "https://raffle.example.com/raffles/1") {
				hasLink = true
			}
		}
		if !hasLink {
			t.Error("expected buy link field")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestDiscord_DisabledWithoutURL(t *testing.T) {
	d := NewDiscord("", "", nil)
	// Must not panic or block.
	d.RaffleCreated(testRaffle(nil))
	d.WinnerDecided(testRaffle(nil), testEntry())
}
