// Package consent tracks per-session user permission grants for handling
// detected personal data.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const grantKeyPrefix = "pii:consent:"

// GrantTTL is how long a permission grant stays valid.
const GrantTTL = time.Hour

// Grant is one stored consent record. A re-grant for the same (user,
// session) overwrites the record and resets the expiry.
type Grant struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Categories []string  `json:"categories"`
	GrantedAt  time.Time `json:"granted_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"active"`
}

// Expired reports whether the grant is past its validity window.
func (g *Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// Ledger stores grants in Redis, one document per (user, session).
type Ledger struct {
	client *redis.Client
}

// NewLedger wraps a Redis client.
func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func grantKey(userID, sessionID string) string {
	return fmt.Sprintf("%s%s:%s", grantKeyPrefix, userID, sessionID)
}

// Grant records consent for the given categories. Idempotent: repeated
// grants overwrite and restart the clock.
func (l *Ledger) Grant(ctx context.Context, userID, sessionID string, categories []string) (*Grant, error) {
	now := time.Now().UTC()
	g := &Grant{
		UserID:     userID,
		SessionID:  sessionID,
		Categories: categories,
		GrantedAt:  now,
		ExpiresAt:  now.Add(GrantTTL),
		Active:     true,
	}

	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal grant: %w", err)
	}
	if err := l.client.Set(ctx, grantKey(userID, sessionID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("store grant: %w", err)
	}
	return g, nil
}

// Check reports whether an active, unexpired grant covers every required
// category. Expiry is evaluated lazily at read time; a missing grant is
// simply not covered, never an error.
func (l *Ledger) Check(ctx context.Context, userID, sessionID string, required []string) (bool, error) {
	data, err := l.client.Get(ctx, grantKey(userID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load grant: %w", err)
	}

	var g Grant
	if err := json.Unmarshal(data, &g); err != nil {
		return false, fmt.Errorf("unmarshal grant: %w", err)
	}

	if !g.Active || g.Expired(time.Now().UTC()) {
		return false, nil
	}

	granted := make(map[string]bool, len(g.Categories))
	for _, c := range g.Categories {
		granted[c] = true
	}
	for _, r := range required {
		if !granted[r] {
			return false, nil
		}
	}
	return true, nil
}

// Revoke marks the grant inactive. Revoking a grant that does not exist
// succeeds silently.
func (l *Ledger) Revoke(ctx context.Context, userID, sessionID string) error {
	key := grantKey(userID, sessionID)

	data, err := l.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load grant: %w", err)
	}

	var g Grant
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("unmarshal grant: %w", err)
	}
	g.Active = false

	updated, err := json.Marshal(&g)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := l.client.Set(ctx, key, updated, 0).Err(); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}
