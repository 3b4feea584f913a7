package consent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLedger(client)
}

func TestGrantAndCheck(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	g, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn", "credit_card"})
	if err != nil {
		t.Fatal(err)
	}
	if !g.Active {
		t.Error("fresh grant should be active")
	}
	if got := g.ExpiresAt.Sub(g.GrantedAt); got != GrantTTL {
		t.Errorf("grant window = %v, want %v", got, GrantTTL)
	}

	ok, err := l.Check(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("granted category should pass")
	}

	ok, err = l.Check(ctx, "user-1", "sess-1", []string{"ssn", "aadhaar"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("ungranted category should fail the subset check")
	}
}

func TestCheckMissingGrant(t *testing.T) {
	l := newTestLedger(t)

	ok, err := l.Check(context.Background(), "nobody", "nowhere", []string{"ssn"})
	if err != nil {
		t.Fatalf("missing grant should not error: %v", err)
	}
	if ok {
		t.Error("missing grant should not pass")
	}
}

func TestCheckEmptyRequirement(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn"}); err != nil {
		t.Fatal(err)
	}

	// An empty requirement set is vacuously covered.
	ok, err := l.Check(ctx, "user-1", "sess-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("empty requirement should pass against an active grant")
	}
}

func TestGrantOverwrites(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Grant(ctx, "user-1", "sess-1", []string{"email"}); err != nil {
		t.Fatal(err)
	}

	ok, err := l.Check(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("overwritten grant should drop previous categories")
	}

	ok, err = l.Check(ctx, "user-1", "sess-1", []string{"email"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("latest grant categories should pass")
	}
}

func TestRevoke(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Revoke(ctx, "user-1", "sess-1"); err != nil {
		t.Fatal(err)
	}

	ok, err := l.Check(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("revoked grant should not pass")
	}
}

func TestRevokeAbsentGrant(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Revoke(context.Background(), "nobody", "nowhere"); err != nil {
		t.Errorf("revoking an absent grant should succeed silently: %v", err)
	}
}

func TestGrantExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewLedger(client)
	ctx := context.Background()

	g, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}

	// Expiry is checked lazily against the stored timestamp, so aging the
	// record directly is enough.
	g.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Set(ctx, grantKey("user-1", "sess-1"), data, 0).Err(); err != nil {
		t.Fatal(err)
	}

	ok, err := l.Check(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expired grant should not pass")
	}

	// Re-granting resets the window.
	if _, err := l.Grant(ctx, "user-1", "sess-1", []string{"ssn"}); err != nil {
		t.Fatal(err)
	}
	ok, err = l.Check(ctx, "user-1", "sess-1", []string{"ssn"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("fresh re-grant should pass")
	}
}
