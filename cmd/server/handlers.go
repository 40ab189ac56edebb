package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"solana-raffle/internal/domain"
	"solana-raffle/internal/identity"
	"solana-raffle/internal/observability"
)

// routes builds the HTTP API.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/raffles", s.handleListRaffles)
	mux.HandleFunc("POST /api/raffles", s.handleCreateRaffle)
	mux.HandleFunc("GET /api/raffles/{id}", s.handleGetRaffle)
	mux.HandleFunc("POST /api/raffles/{id}/buy", s.handleBuy)
	mux.HandleFunc("POST /api/raffles/{id}/draw", s.handleDraw)
	mux.HandleFunc("GET /api/winners", s.handleWinners)
	mux.HandleFunc("POST /api/verify", s.handleVerifyWallet)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/history", s.handleStatsHistory)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRaffleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRaffleEnded),
		errors.Is(err, domain.ErrWinnerAlreadyPicked),
		errors.Is(err, domain.ErrNoEntries),
		errors.Is(err, domain.ErrWalletAlreadyLinked):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrDuplicatePayment):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		status = http.StatusAccepted
	case errors.Is(err, domain.ErrPaymentMismatch),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrIdentityNotLinked):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// raffleResponse is the public shape of a raffle.
type raffleResponse struct {
	ID             int64   `json:"id"`
	PrizeName      string  `json:"prize_name"`
	PrizeImageURL  string  `json:"prize_image_url,omitempty"`
	PrizeType      string  `json:"prize_type"`
	PrizeAmount    float64 `json:"prize_amount"`
	TicketPrice    float64 `json:"ticket_price"`
	TotalTickets   int64   `json:"total_tickets"`
	EndTime        int64   `json:"end_time"`
	Status         string  `json:"status"`
	WinnerWallet   *string `json:"winner_wallet,omitempty"`
	WinnerIdentity *int64  `json:"winner_identity,omitempty"`
	CreatedAt      int64   `json:"created_at"`
}

func toRaffleResponse(r *domain.Raffle) raffleResponse {
	return raffleResponse{
		ID:             r.ID,
		PrizeName:      r.PrizeName,
		PrizeImageURL:  r.PrizeImageURL,
		PrizeType:      string(r.PrizeType),
		PrizeAmount:    r.PrizeAmount,
		TicketPrice:    r.TicketPrice,
		TotalTickets:   r.TotalTickets,
		EndTime:        r.EndTime,
		Status:         string(r.Status),
		WinnerWallet:   r.WinnerWallet,
		WinnerIdentity: r.WinnerIdentity,
		CreatedAt:      r.CreatedAt,
	}
}

func toRaffleResponses(raffles []*domain.Raffle) []raffleResponse {
	out := make([]raffleResponse, 0, len(raffles))
	for _, r := range raffles {
		out = append(out, toRaffleResponse(r))
	}
	return out
}

// handleListRaffles returns active raffles, sweeping expired ones first.
func (s *Server) handleListRaffles(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleResponses(list))
}

// createRaffleRequest is the admin raffle-creation body.
type createRaffleRequest struct {
	AdminWallet   string  `json:"admin_wallet"`
	PrizeName     string  `json:"prize_name"`
	PrizeImageURL string  `json:"prize_image_url"`
	PrizeType     string  `json:"prize_type"`
	PrizeAmount   float64 `json:"prize_amount"`
	TicketPrice   float64 `json:"ticket_price"`
	EndTime       int64   `json:"end_time"`
}

func (s *Server) handleCreateRaffle(w http.ResponseWriter, r *http.Request) {
	var req createRaffleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	created, err := s.service.Create(r.Context(), req.AdminWallet, &domain.Raffle{
		PrizeName:     req.PrizeName,
		PrizeImageURL: req.PrizeImageURL,
		PrizeType:     domain.PrizeType(req.PrizeType),
		PrizeAmount:   req.PrizeAmount,
		TicketPrice:   req.TicketPrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.notifier.RaffleCreated(created)
	writeJSON(w, http.StatusCreated, toRaffleResponse(created))
}

func (s *Server) handleGetRaffle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid raffle id"})
		return
	}

	raffle, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleResponse(raffle))
}

// buyRequest claims a payment transaction for tickets.
type buyRequest struct {
	Wallet    string `json:"wallet"`
	Reference string `json:"reference"`
	Quantity  int64  `json:"quantity"`
}

// buyResponse confirms a recorded entry.
type buyResponse struct {
	EntryID    int64   `json:"entry_id"`
	RaffleID   int64   `json:"raffle_id"`
	Quantity   int64   `json:"quantity"`
	AmountPaid float64 `json:"amount_paid"`
}

// handleBuy verifies the claimed payment and records the entry. The
// reference's unique constraint makes retries of this endpoint safe.
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid raffle id"})
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Wallet == "" || req.Reference == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "wallet and reference are required"})
		return
	}

	verified, err := s.verifier.Verify(r.Context(), id, req.Wallet, req.Reference, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.recorder.Record(r.Context(), verified, domain.ChannelWeb)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, buyResponse{
		EntryID:    entry.ID,
		RaffleID:   entry.RaffleID,
		Quantity:   entry.Quantity,
		AmountPaid: entry.AmountPaid,
	})
}

// drawRequest triggers a winner draw.
type drawRequest struct {
	AdminWallet string `json:"admin_wallet"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid raffle id"})
		return
	}

	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if !s.service.IsAdmin(req.AdminWallet) {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	decided, err := s.selector.Draw(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleResponse(decided))
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	winners, err := s.service.ListWinners(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleResponses(winners))
}

// verifyRequest carries a signed wallet-link challenge. The signature
// is base58, matching what Solana wallet adapters produce.
type verifyRequest struct {
	DiscordID int64  `json:"discord_id"`
	Wallet    string `json:"wallet"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// verifyResponse confirms a signature check or a wallet link.
type verifyResponse struct {
	Wallet    string `json:"wallet"`
	Verified  bool   `json:"verified"`
	DiscordID int64  `json:"discord_id,omitempty"`
	LinkedAt  int64  `json:"linked_at,omitempty"`
}

// handleVerifyWallet checks a signed challenge. With a discord_id it
// links the wallet to that identity; without one it only verifies
// ownership.
func (s *Server) handleVerifyWallet(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "signature is not valid base58"})
		return
	}

	if req.DiscordID == 0 {
		if err := identity.VerifySignature(req.Wallet, req.Message, signature); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, verifyResponse{Wallet: req.Wallet, Verified: true})
		return
	}

	user, err := s.linker.Link(r.Context(), req.DiscordID, req.Wallet, req.Message, signature)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Wallet:    user.WalletAddress,
		Verified:  true,
		DiscordID: *user.DiscordID,
		LinkedAt:  user.RegisteredAt,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// revenueBucketResponse is one aggregated slice of revenue history.
type revenueBucketResponse struct {
	BucketStart int64   `json:"bucket_start"`
	Tickets     int64   `json:"tickets"`
	Revenue     float64 `json:"revenue"`
}

// handleStatsHistory returns bucketed revenue history from the
// analytics sink. Query params: hours (default 24), bucket_minutes
// (default 60).
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	bucketMinutes := 60
	if v := r.URL.Query().Get("bucket_minutes"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			bucketMinutes = parsed
		}
	}

	buckets, err := s.service.RevenueHistory(r.Context(),
		time.Duration(hours)*time.Hour,
		time.Duration(bucketMinutes)*time.Minute,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]revenueBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, revenueBucketResponse{
			BucketStart: b.BucketStartMs,
			Tickets:     b.Tickets,
			Revenue:     b.Revenue,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Started       time.Time `json:"started"`
	LastSweep     time.Time `json:"last_sweep,omitempty"`
	Sweeps        int       `json:"sweeps"`
	RafflesClosed int64     `json:"raffles_closed"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Started:       s.started,
		LastSweep:     s.lastSweep,
		Sweeps:        s.sweeps,
		RafflesClosed: s.closed,
	})
}
