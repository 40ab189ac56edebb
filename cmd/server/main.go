// Package main runs the raffle service: the HTTP API, the payment
// verifier, the identity linker, the winner draw, and the background
// expiry sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"solana-raffle/internal/draw"
	"solana-raffle/internal/identity"
	"solana-raffle/internal/notify"
	"solana-raffle/internal/payment"
	"solana-raffle/internal/raffle"
	"solana-raffle/internal/solana"
	"solana-raffle/internal/storage"
	chstore "solana-raffle/internal/storage/clickhouse"
	"solana-raffle/internal/storage/memory"
	"solana-raffle/internal/storage/migrations"
	pgstore "solana-raffle/internal/storage/postgres"
)

// Server holds all components of the raffle service.
type Server struct {
	verifier *payment.Verifier
	recorder *raffle.Recorder
	service  *raffle.Service
	linker   *identity.Linker
	selector *draw.Selector
	notifier *notify.Discord
	logger   *log.Logger

	sweepInterval time.Duration

	mu        sync.Mutex
	started   time.Time
	lastSweep time.Time
	sweeps    int
	closed    int64
}

// appStores holds all storage implementations.
type appStores struct {
	raffles storage.RaffleStore
	entries storage.EntryStore
	users   storage.UserStore
	// sales is nil when ClickHouse is not configured.
	sales storage.SaleEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables confirmation waits)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables sale analytics)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address")
	treasury := flag.String("treasury", os.Getenv("TREASURY_WALLET"), "Treasury wallet that receives ticket payments")
	adminWallets := flag.String("admin-wallets", os.Getenv("ADMIN_WALLETS"), "Comma-separated admin wallet addresses")
	webhookURL := flag.String("discord-webhook-url", os.Getenv("DISCORD_WEBHOOK_URL"), "Discord webhook URL for announcements (optional)")
	appURL := flag.String("app-url", os.Getenv("APP_URL"), "Public app URL used in announcement links (optional)")
	sweepInterval := flag.Duration("sweep-interval", 1*time.Minute, "Expiry sweep interval")
	confirmWait := flag.Duration("confirm-wait", 30*time.Second, "How long to wait for unconfirmed payment transactions")
	trustUnparsed := flag.Bool("trust-unparsed", false, "Accept transactions with missing balance metadata")
	linkWindow := flag.Duration("link-window", identity.DefaultFreshnessWindow, "Freshness window for wallet-link challenges")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *treasury == "" {
		logger.Fatal("--treasury is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)

	var ws solana.WSClient
	if *wsEndpoint != "" {
		ws, err = solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to connect websocket: %v", err)
		}
		defer ws.Close()
	}

	notifier := notify.NewDiscord(*webhookURL, *appURL, log.New(os.Stdout, "[notify] ", log.LstdFlags))
	linker := identity.NewLinker(stores.users, identity.LinkerConfig{
		FreshnessWindow: *linkWindow,
	}, log.New(os.Stdout, "[identity] ", log.LstdFlags))

	verifier := payment.NewVerifier(rpc, ws, stores.raffles, stores.entries, payment.VerifierConfig{
		Treasury:      *treasury,
		ConfirmWait:   *confirmWait,
		TrustUnparsed: *trustUnparsed,
	}, log.New(os.Stdout, "[payment] ", log.LstdFlags))

	server := &Server{
		verifier: verifier,
		recorder: raffle.NewRecorder(stores.entries, linker, stores.sales, log.New(os.Stdout, "[raffle] ", log.LstdFlags)),
		service: raffle.NewService(stores.raffles, stores.entries, stores.users, stores.sales, raffle.ServiceConfig{
			AdminWallets: splitList(*adminWallets),
		}, log.New(os.Stdout, "[raffle] ", log.LstdFlags)),
		linker:        linker,
		selector:      draw.NewSelector(stores.raffles, stores.entries, stores.users, notifier, rand.New(rand.NewSource(time.Now().UnixNano())), log.New(os.Stdout, "[draw] ", log.LstdFlags)),
		notifier:      notifier,
		logger:        logger,
		sweepInterval: *sweepInterval,
		started:       time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: server.routes(),
	}

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	// Repair any ticket counters that drifted from the entries, e.g.
	// after a crash between deployments.
	if repaired, err := server.service.ReconcileTicketCounts(ctx); err != nil {
		logger.Printf("Ticket count reconciliation failed: %v", err)
	} else if repaired > 0 {
		logger.Printf("Repaired %d drifted ticket counters", repaired)
	}

	go server.runSweepScheduler(ctx)

	logger.Printf("Starting HTTP server on %s", *httpAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*appStores, func(), error) {
	if useMemory {
		raffles := memory.NewRaffleStore()
		stores := &appStores{
			raffles: raffles,
			entries: memory.NewEntryStore(raffles),
			users:   memory.NewUserStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &appStores{
		raffles: pgstore.NewRaffleStore(pool),
		entries: pgstore.NewEntryStore(pool),
		users:   pgstore.NewUserStore(pool),
	}

	var chConn *chstore.Conn
	if clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.sales = chstore.NewSaleEventStore(chConn)
	} else {
		logger.Println("ClickHouse not configured, sale analytics disabled")
	}

	cleanup := func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}

	return stores, cleanup, nil
}

// runSweepScheduler closes expired raffles on an interval. The listing
// path also sweeps lazily; this keeps things moving when nobody is
// looking.
func (s *Server) runSweepScheduler(ctx context.Context) {
	s.logger.Printf("Starting expiry sweep scheduler (interval: %v)...", s.sweepInterval)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := s.service.CloseExpired(ctx)
			if err != nil {
				s.logger.Printf("Sweep error: %v", err)
				continue
			}
			s.mu.Lock()
			s.lastSweep = time.Now()
			s.sweeps++
			s.closed += closed
			s.mu.Unlock()
		}
	}
}

// splitList splits a comma-separated flag value.
func splitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
