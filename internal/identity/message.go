package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// messageHeader is the first line of every challenge message. Signing
// wallets see this text in their wallet UI before approving.
const messageHeader = "SOL Raffle Wallet Verification"

// ChallengeMessage builds the exact text a wallet must sign to prove
// ownership when linking to a Discord identity.
func ChallengeMessage(discordID int64, wallet string, timestampMs int64) string {
	return fmt.Sprintf("%s\n\nDiscord ID: %d\nWallet: %s\nTimestamp: %d",
		messageHeader, discordID, wallet, timestampMs)
}

// parsedMessage holds the fields extracted from a challenge message.
type parsedMessage struct {
	DiscordID   int64
	Wallet      string
	TimestampMs int64
}

// parseMessage validates the message layout and extracts its fields.
// The layout is strict; anything unexpected is rejected so a signature
// over arbitrary text can never link a wallet.
func parseMessage(message string) (*parsedMessage, error) {
	lines := strings.Split(message, "\n")
	if len(lines) != 5 {
		return nil, fmt.Errorf("expected 5 lines, got %d", len(lines))
	}
	if lines[0] != messageHeader {
		return nil, fmt.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "" {
		return nil, fmt.Errorf("expected blank second line")
	}

	discordStr, ok := strings.CutPrefix(lines[2], "Discord ID: ")
	if !ok {
		return nil, fmt.Errorf("missing Discord ID line")
	}
	discordID, err := strconv.ParseInt(discordStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse Discord ID: %w", err)
	}

	wallet, ok := strings.CutPrefix(lines[3], "Wallet: ")
	if !ok {
		return nil, fmt.Errorf("missing Wallet line")
	}
	if wallet == "" {
		return nil, fmt.Errorf("empty wallet")
	}

	tsStr, ok := strings.CutPrefix(lines[4], "Timestamp: ")
	if !ok {
		return nil, fmt.Errorf("missing Timestamp line")
	}
	timestampMs, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}

	return &parsedMessage{
		DiscordID:   discordID,
		Wallet:      wallet,
		TimestampMs: timestampMs,
	}, nil
}
