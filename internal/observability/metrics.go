// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Payment metrics
	PaymentsVerified  *prometheus.CounterVec
	DuplicatePayments prometheus.Counter

	// Entry metrics
	EntriesRecorded prometheus.Counter
	TicketsSold     prometheus.Counter

	// Raffle lifecycle metrics
	RafflesCreated prometheus.Counter
	RafflesClosed  prometheus.Counter
	DrawsCompleted prometheus.Counter
	DrawConflicts  prometheus.Counter

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	DBQueryDuration *prometheus.HistogramVec

	// Notification metrics
	WebhookSends *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSweep prometheus.Gauge
	ActiveRaffles       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_raffle"
	}

	return &Metrics{
		// Payment metrics
		PaymentsVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verifications_total",
			Help:      "Total number of payment verifications by outcome",
		}, []string{"outcome"}),
		DuplicatePayments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "duplicate_references_total",
			Help:      "Total number of rejected duplicate payment references",
		}),

		// Entry metrics
		EntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "recorded_total",
			Help:      "Total number of entries recorded",
		}),
		TicketsSold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "tickets_sold_total",
			Help:      "Total number of tickets sold",
		}),

		// Raffle lifecycle metrics
		RafflesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "raffles",
			Name:      "created_total",
			Help:      "Total number of raffles created",
		}),
		RafflesClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "raffles",
			Name:      "closed_total",
			Help:      "Total number of raffles closed by the expiry sweep",
		}),
		DrawsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "completed_total",
			Help:      "Total number of winner draws committed",
		}),
		DrawConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "conflicts_total",
			Help:      "Total number of draws lost to a concurrent winner commit",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),

		// Notification metrics
		WebhookSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "webhook_sends_total",
			Help:      "Total number of Discord webhook sends by status",
		}, []string{"event", "status"}),

		// Health metrics
		LastSuccessfulSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of last successful expiry sweep",
		}),
		ActiveRaffles: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "raffles",
			Name:      "active",
			Help:      "Current number of active raffles",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPaymentVerified records the outcome of a payment verification.
func RecordPaymentVerified(outcome string) {
	DefaultMetrics.PaymentsVerified.WithLabelValues(outcome).Inc()
}

// RecordDuplicatePayment increments the duplicate reference counter.
func RecordDuplicatePayment() {
	DefaultMetrics.DuplicatePayments.Inc()
	DefaultMetrics.PaymentsVerified.WithLabelValues("duplicate").Inc()
}

// RecordEntry records a committed entry and its ticket quantity.
func RecordEntry(quantity int64) {
	DefaultMetrics.EntriesRecorded.Inc()
	DefaultMetrics.TicketsSold.Add(float64(quantity))
}

// RecordRaffleCreated increments the raffles created counter.
func RecordRaffleCreated() {
	DefaultMetrics.RafflesCreated.Inc()
}

// RecordRafflesClosed adds to the closed raffles counter.
func RecordRafflesClosed(n int64) {
	DefaultMetrics.RafflesClosed.Add(float64(n))
}

// RecordDraw records a committed winner draw.
func RecordDraw() {
	DefaultMetrics.DrawsCompleted.Inc()
}

// RecordDrawConflict records a draw lost to a concurrent commit.
func RecordDrawConflict() {
	DefaultMetrics.DrawConflicts.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query duration.
func RecordDBQuery(database, operation string, seconds float64) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
}

// RecordWebhookSend records a Discord webhook delivery attempt.
func RecordWebhookSend(event, status string) {
	DefaultMetrics.WebhookSends.WithLabelValues(event, status).Inc()
}

// UpdateActiveRaffles updates the active raffle gauge.
func UpdateActiveRaffles(n int64) {
	DefaultMetrics.ActiveRaffles.Set(float64(n))
}

// UpdateLastSweep sets the last successful sweep timestamp.
func UpdateLastSweep(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulSweep.Set(float64(unixSeconds))
}
