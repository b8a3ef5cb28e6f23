package staffauth

import (
	"context"
	"errors"
	"testing"

	"github.com/hrplane/staffauth/internal"
	"github.com/hrplane/staffauth/permission"
)

func TestRefreshIssuesAccessTokenWithFreshRoles(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Role assignment changes between login and refresh.
	pp.mu.Lock()
	p := pp.byCredID["c1"]
	p.Roles = append(p.Roles, permission.RoleGrant{Name: "payroll-admin", Level: 70, Active: true})
	pp.byCredID["c1"] = p
	pp.mu.Unlock()

	accessToken, err := engine.Refresh(ctx, result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	auth, err := engine.Authenticate(ctx, accessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if len(auth.Identity.Roles) != 2 {
		t.Fatalf("expected refreshed roles, got %v", auth.Identity.Roles)
	}
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	_, err := engine.Refresh(ctx, "not-a-token")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestRefreshRejectsAccessTokenKind(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err = engine.Refresh(ctx, result.Tokens.AccessToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token at refresh, got %v", err)
	}
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err = engine.Refresh(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after logout, got %v", err)
	}
}

func TestRefreshRejectsInactiveProfile(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	pp.setActive("c1", false)

	_, err = engine.Refresh(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestRingCapacityEvictsOldestToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	cfg := testConfig(t)
	cfg.Session.MaxActiveTokens = 3
	cfg.Security.MaxLoginAttempts = 100
	engine := newTestEngine(t, cfg, rdb, cp, pp)

	tokens := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
		if err != nil {
			t.Fatalf("login %d failed: %v", i+1, err)
		}
		tokens = append(tokens, result.Tokens.RefreshToken)
	}

	// The oldest of the four no longer refreshes; the newest three do.
	if _, err := engine.Refresh(ctx, tokens[0]); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected oldest token to be evicted, got %v", err)
	}
	for i := 1; i < 4; i++ {
		if _, err := engine.Refresh(ctx, tokens[i]); err != nil {
			t.Fatalf("token %d should still refresh: %v", i, err)
		}
	}

	count, err := engine.sessionRing.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected ring size 3, got %d", count)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTokenEvicted] != 1 {
		t.Fatalf("expected 1 eviction, got %d", snap.Counters[MetricTokenEvicted])
	}
}

func TestLogoutIsIdempotentAndSilent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("first logout failed: %v", err)
	}
	if err := engine.Logout(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("second logout should be silent: %v", err)
	}
	if err := engine.Logout(ctx, "complete-garbage"); err != nil {
		t.Fatalf("garbage logout should be silent: %v", err)
	}
	if err := engine.Logout(ctx, ""); err != nil {
		t.Fatalf("empty logout should be silent: %v", err)
	}
}

func TestLogoutAllClearsRing(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	cfg := testConfig(t)
	cfg.Security.MaxLoginAttempts = 100
	engine := newTestEngine(t, cfg, rdb, cp, pp)

	tokens := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
		if err != nil {
			t.Fatalf("login %d failed: %v", i+1, err)
		}
		tokens = append(tokens, result.Tokens.RefreshToken)
	}

	if err := engine.LogoutAll(ctx, "c1"); err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}

	for i, token := range tokens {
		if _, err := engine.Refresh(ctx, token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %d should be dead after LogoutAll, got %v", i, err)
		}
	}

	count, err := engine.sessionRing.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ring, got %d", count)
	}
}

func TestActiveSessionsListsRingEntries(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := WithDeviceInfo(WithClientIP(context.Background(), "10.1.2.3"), "test-agent")
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Correct-horse1")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Correct-horse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	entries, err := engine.ActiveSessions(ctx, "c1")
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Record.SourceAddress != "10.1.2.3" || entries[0].Record.DeviceInfo != "test-agent" {
		t.Fatalf("unexpected entry metadata: %+v", entries[0].Record)
	}

	wantMember := internal.EncodeDigest(internal.HashTokenString(result.Tokens.RefreshToken))
	if entries[0].Digest != wantMember {
		t.Fatalf("expected digest %s, got %s", wantMember, entries[0].Digest)
	}
}
