package analytics

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog"
)

// ClickHouseSink writes triage events to ClickHouse via the database/sql
// driver registered by clickhouse-go/v2.
type ClickHouseSink struct {
	db     *sql.DB
	logger zerolog.Logger
}

const createTriageEventsTable = `
CREATE TABLE IF NOT EXISTS triage_events (
	lead_id      String,
	content_hash String,
	adapter      String,
	intent       String,
	priority     String,
	next_action  String,
	confidence   Float64,
	latency_ms   Int64,
	created_at   DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (created_at, lead_id)`

const insertTriageEvent = `
INSERT INTO triage_events
	(lead_id, content_hash, adapter, intent, priority, next_action, confidence, latency_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// NewClickHouseSink opens a connection to dsn and ensures the triage_events
// table exists.
func NewClickHouseSink(ctx context.Context, dsn string, logger zerolog.Logger) (*ClickHouseSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("analytics: clickhouse DSN is required")
	}

	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open clickhouse connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("analytics: ping clickhouse: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTriageEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("analytics: create triage_events table: %w", err)
	}

	return &ClickHouseSink{db: db, logger: logger.With().Str("sink", "clickhouse").Logger()}, nil
}

// WriteTriageEvents inserts a batch of events inside a single transaction.
func (s *ClickHouseSink) WriteTriageEvents(ctx context.Context, events []TriageEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("analytics: begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertTriageEvent)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("analytics: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.LeadID, e.ContentHash, e.Adapter, e.Intent, e.Priority, e.NextAction,
			e.Confidence, e.LatencyMs, e.CreatedAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("analytics: insert triage event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("analytics: commit batch: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.db.Close()
}
