package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id             BIGSERIAL PRIMARY KEY,
	request_id     TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	hashed_input   TEXT NOT NULL,
	masked_preview TEXT NOT NULL DEFAULT '',
	risk_score     INT NOT NULL,
	risk_flags     TEXT[] NOT NULL DEFAULT '{}',
	action         TEXT NOT NULL,
	severity       TEXT NOT NULL,
	pii_count      INT NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore writes audit records to Postgres and serves aggregate
// analytics over them.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies the connection and ensures the
// audit_events table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure audit table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Write inserts one audit record.
func (s *PostgresStore) Write(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(request_id, user_id, hashed_input, masked_preview, risk_score,
			 risk_flags, action, severity, pii_count, status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.RequestID, rec.UserID, rec.HashedInput, rec.MaskedPreview, rec.Score,
		rec.Flags, rec.Action, rec.Severity, rec.PIICount, rec.Status,
		rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Summary aggregates the trail since a point in time.
type Summary struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	BySeverity   map[string]int64 `json:"by_severity"`
	AverageScore float64          `json:"average_score"`
	Since        time.Time        `json:"since"`
}

// Summarize computes grouped counts and the average risk score for records
// created at or after since.
func (s *PostgresStore) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	sum := &Summary{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
		Since:      since,
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, severity, COUNT(*)
		FROM audit_events
		WHERE created_at >= $1
		GROUP BY status, severity`, since)
	if err != nil {
		return nil, fmt.Errorf("summarize audit trail: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, severity string
		var count int64
		if err := rows.Scan(&status, &severity, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		sum.ByStatus[status] += count
		sum.BySeverity[severity] += count
		sum.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary rows: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(risk_score), 0)
		FROM audit_events
		WHERE created_at >= $1`, since).Scan(&sum.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("average score: %w", err)
	}

	return sum, nil
}
