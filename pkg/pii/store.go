package pii

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "pii:token:"

// DefaultRetention is how long token records stay recoverable.
const DefaultRetention = 90 * 24 * time.Hour

// ErrTokenNotFound is returned when a reference has no stored record.
var ErrTokenNotFound = errors.New("pii token not found")

// TokenRecord is the stored form of one tokenized PII value. The raw value
// only exists inside Ciphertext.
type TokenRecord struct {
	Ref        string    `json:"ref"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id"`
	Ciphertext string    `json:"ciphertext"`
	Hash       string    `json:"hash"`
	Masked     string    `json:"masked"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"active"`
	UsageCount int       `json:"usage_count"`
}

// Expired reports whether the record is past its retention window.
func (r *TokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// TokenStore persists token records in Redis as JSON documents.
type TokenStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewTokenStore wraps a Redis client. A zero retention falls back to
// DefaultRetention.
func NewTokenStore(client *redis.Client, retention time.Duration) *TokenStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &TokenStore{client: client, retention: retention}
}

// Retention exposes the configured retention window.
func (s *TokenStore) Retention() time.Duration {
	return s.retention
}

func tokenKey(ref string) string {
	return tokenKeyPrefix + ref
}

// Save persists a record. Records carry their own expiry; the cleanup sweep
// removes them after retention, so no Redis TTL is set here.
func (s *TokenStore) Save(ctx context.Context, rec *TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(rec.Ref), data, 0).Err(); err != nil {
		return fmt.Errorf("store token record: %w", err)
	}
	return nil
}

// Get loads a record by reference.
func (s *TokenStore) Get(ctx context.Context, ref string) (*TokenRecord, error) {
	data, err := s.client.Get(ctx, tokenKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load token record: %w", err)
	}
	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal token record: %w", err)
	}
	return &rec, nil
}

// IncrementUsage bumps the usage counter on a record.
func (s *TokenStore) IncrementUsage(ctx context.Context, ref string) error {
	rec, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	rec.UsageCount++
	return s.Save(ctx, rec)
}

// Revoke marks a record inactive. The ciphertext stays for the retention
// window but Detokenize refuses revoked records.
func (s *TokenStore) Revoke(ctx context.Context, ref string) error {
	rec, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	rec.Active = false
	return s.Save(ctx, rec)
}

// CleanupExpired scans all token records and deletes those past expiry.
// Returns the number of records removed.
func (s *TokenStore) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	removed := 0

	iter := s.client.Scan(ctx, 0, tokenKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("cleanup load %s: %w", key, err)
		}
		var rec TokenRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// Unreadable records are removed rather than kept forever.
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("cleanup delete %s: %w", key, err)
			}
			removed++
			continue
		}
		if rec.Expired(now) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("cleanup delete %s: %w", key, err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cleanup scan: %w", err)
	}
	return removed, nil
}

// Stats counts active, unexpired token records by PII type.
func (s *TokenStore) Stats(ctx context.Context) (map[string]int, error) {
	now := time.Now().UTC()
	counts := make(map[string]int)

	iter := s.client.Scan(ctx, 0, tokenKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stats load: %w", err)
		}
		var rec TokenRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.Active && !rec.Expired(now) {
			counts[string(rec.Type)]++
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stats scan: %w", err)
	}
	return counts, nil
}
