// Package notify delivers raffle announcements to Discord webhooks.
// Delivery is fire-and-forget; a dead webhook never blocks raffle
// operations.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/observability"
)

// Embed colors.
const (
	colorPurple  = 0x9333ea
	colorEmerald = 0x10b981
)

// embed is a Discord message embed.
type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
	Thumbnail   *embedImage  `json:"thumbnail,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// webhookPayload is the body POSTed to the webhook URL.
type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Discord sends raffle events to a Discord webhook.
type Discord struct {
	webhookURL string
	appURL     string
	client     *http.Client
	logger     *log.Logger
}

// NewDiscord creates a Discord notifier. An empty webhookURL disables
// all sends.
func NewDiscord(webhookURL, appURL string, logger *log.Logger) *Discord {
	if logger == nil {
		logger = log.Default()
	}
	return &Discord{
		webhookURL: webhookURL,
		appURL:     appURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// RaffleCreated announces a new raffle.
func (d *Discord) RaffleCreated(raffle *domain.Raffle) {
	prize := "NFT/Token"
	if raffle.PrizeType == domain.PrizeTypeSOL {
		prize = fmt.Sprintf("%g SOL", raffle.PrizeAmount)
	}

	e := embed{
		Title:       "🎉 New Raffle Created!",
		Description: fmt.Sprintf("**%s**", raffle.PrizeName),
		Color:       colorPurple,
		Fields: []embedField{
			{Name: "🎟️ Ticket Price", Value: fmt.Sprintf("%g SOL", raffle.TicketPrice), Inline: true},
			{Name: "🏆 Prize", Value: prize, Inline: true},
			{Name: "⏰ Ends In", Value: fmt.Sprintf("<t:%d:R>", raffle.EndTime/1000)},
		},
		Footer:    &embedFooter{Text: "Solana Raffle System"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if d.appURL != "" {
		e.Fields = append(e.Fields, embedField{
			Name:  "🔗 Join Now",
			Value: fmt.Sprintf("[Click to Buy Tickets](%s/raffles/%d)", d.appURL, raffle.ID),
		})
	}
	if raffle.PrizeImageURL != "" {
		e.Image = &embedImage{URL: raffle.PrizeImageURL}
	}

	go d.send("raffle_created", e)
}

// WinnerDecided announces a committed winner. Implements draw.Notifier.
func (d *Discord) WinnerDecided(raffle *domain.Raffle, entry *domain.Entry) {
	winner := fmt.Sprintf("Identity %d", entry.BuyerIdentity)
	if raffle.WinnerWallet != nil {
		winner = fmt.Sprintf("Identity %d\n`%s`", entry.BuyerIdentity, *raffle.WinnerWallet)
	}

	e := embed{
		Title:       "🎊 Raffle Ended!",
		Description: fmt.Sprintf("The raffle for **%s** has ended.", raffle.PrizeName),
		Color:       colorEmerald,
		Fields: []embedField{
			{Name: "🏆 Winner", Value: winner},
			{Name: "🎟️ Total Tickets Sold", Value: fmt.Sprintf("%d", raffle.TotalTickets), Inline: true},
		},
		Footer:    &embedFooter{Text: "Congratulations!"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if raffle.PrizeImageURL != "" {
		e.Thumbnail = &embedImage{URL: raffle.PrizeImageURL}
	}

	go d.send("winner_decided", e)
}

// send POSTs one embed to the webhook. Errors are logged and dropped.
func (d *Discord) send(event string, e embed) {
	if d.webhookURL == "" {
		return
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		d.logger.Printf("marshal %s embed: %v", event, err)
		observability.RecordWebhookSend(event, "error")
		return
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		d.logger.Printf("send %s webhook: %v", event, err)
		observability.RecordWebhookSend(event, "error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Printf("%s webhook returned status %d", event, resp.StatusCode)
		observability.RecordWebhookSend(event, "error")
		return
	}
	observability.RecordWebhookSend(event, "ok")
}
