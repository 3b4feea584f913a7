// Package audit persists one record per processed request. Records never
// contain raw input, only its salted hash and a masked preview.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Request outcome statuses.
const (
	StatusCompleted       = "completed"
	StatusBlocked         = "blocked"
	StatusConsentRequired = "consent_required"
	StatusFailed          = "failed"
	StatusAborted         = "aborted"
)

// DefaultJSONLPath is where the file-backed store appends when no path is
// configured.
const DefaultJSONLPath = "audit_events.jsonl"

// Record is one audit trail entry.
type Record struct {
	RequestID     string    `json:"request_id"`
	UserID        string    `json:"user_id"`
	HashedInput   string    `json:"hashed_input"`
	MaskedPreview string    `json:"masked_preview"`
	Score         int       `json:"risk_score"`
	Flags         []string  `json:"risk_flags"`
	Action        string    `json:"action"`
	Severity      string    `json:"severity"`
	PIICount      int       `json:"pii_count"`
	Status        string    `json:"status"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is the write side of the audit trail.
type Store interface {
	Write(ctx context.Context, rec *Record) error
	Close() error
}

// JSONLStore appends records as JSON lines to a local file. Suitable for
// single-node deployments and development.
type JSONLStore struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLStore opens (or creates) the append-only audit file.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if path == "" {
		path = DefaultJSONLPath
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &JSONLStore{file: f}, nil
}

// Write appends one record. Serialized under a mutex so concurrent
// requests never interleave lines.
func (s *JSONLStore) Write(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Close flushes and closes the audit file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
