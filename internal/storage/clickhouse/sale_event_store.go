package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-raffle/internal/observability"
	"solana-raffle/internal/storage"
)

// SaleEventStore implements storage.SaleEventStore using ClickHouse.
// MergeTree enforces no uniqueness; the Postgres entries table is the
// source of truth and this sink only feeds dashboards.
type SaleEventStore struct {
	conn *Conn
}

// NewSaleEventStore creates a new SaleEventStore.
func NewSaleEventStore(conn *Conn) *SaleEventStore {
	return &SaleEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SaleEventStore = (*SaleEventStore)(nil)

// Insert appends one sale event.
func (s *SaleEventStore) Insert(ctx context.Context, e *storage.SaleEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_sale_event", time.Since(start).Seconds())
	}()

	query := `
		INSERT INTO sale_events (
			raffle_id, buyer_identity, quantity, amount_paid, channel, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		uint64(e.RaffleID),
		uint64(e.BuyerIdentity),
		uint64(e.Quantity),
		e.AmountPaid,
		e.Channel,
		uint64(e.TimestampMs),
	)
	if err != nil {
		return fmt.Errorf("insert sale event: %w", err)
	}
	return nil
}

// RevenueHistory aggregates sales since startMs into buckets of bucketMs
// width, ordered by bucket start ASC.
func (s *SaleEventStore) RevenueHistory(ctx context.Context, startMs, bucketMs int64) ([]*storage.RevenueBucket, error) {
	if bucketMs <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			intDiv(timestamp_ms, ?) * ? AS bucket_start,
			sum(quantity) AS tickets,
			sum(amount_paid) AS revenue
		FROM sale_events
		WHERE timestamp_ms >= ?
		GROUP BY bucket_start
		ORDER BY bucket_start ASC
	`

	rows, err := s.conn.Query(ctx, query,
		uint64(bucketMs), uint64(bucketMs), uint64(startMs),
	)
	if err != nil {
		return nil, fmt.Errorf("query revenue history: %w", err)
	}
	defer rows.Close()

	var buckets []*storage.RevenueBucket
	for rows.Next() {
		var bucketStart, tickets uint64
		var revenue float64
		if err := rows.Scan(&bucketStart, &tickets, &revenue); err != nil {
			return nil, fmt.Errorf("scan revenue bucket: %w", err)
		}
		buckets = append(buckets, &storage.RevenueBucket{
			BucketStartMs: int64(bucketStart),
			Tickets:       int64(tickets),
			Revenue:       revenue,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue buckets: %w", err)
	}

	return buckets, nil
}
