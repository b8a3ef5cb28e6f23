package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func testManager(t *testing.T, accessTTL, refreshTTL time.Duration) *Manager {
	t.Helper()

	accessPub, accessPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate access key failed: %v", err)
	}
	refreshPub, refreshPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate refresh key failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
		SigningMethod:     MethodEd25519,
		AccessPrivateKey:  accessPriv,
		AccessPublicKey:   accessPub,
		RefreshPrivateKey: refreshPriv,
		RefreshPublicKey:  refreshPub,
		Issuer:            "staffauth",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func testSubject() Subject {
	return Subject{
		CredentialID: "c1",
		Email:        "alice@example.com",
		StaffID:      "s1",
		Roles:        []string{"hr-manager"},
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	token, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	claims, err := m.Verify(token, KindAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "c1" || claims.Email != "alice@example.com" || claims.StaffID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "hr-manager" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	accessToken, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	refreshToken, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if _, err := m.Verify(accessToken, KindRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token at refresh gate, got %v", err)
	}
	if _, err := m.Verify(refreshToken, KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh token at access gate, got %v", err)
	}
}

func TestRefreshTokenOmitsRoles(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	refreshToken, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	claims, err := m.Verify(refreshToken, KindRefresh)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(claims.Roles) != 0 {
		t.Fatalf("expected no roles in refresh token, got %v", claims.Roles)
	}
}

func TestTokensMintedInSameSecondAreDistinct(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	first, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	second, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if first == second {
		t.Fatal("expected back-to-back tokens for one subject to differ")
	}

	firstClaims, err := m.Verify(first, KindRefresh)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	secondClaims, err := m.Verify(second, KindRefresh)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if firstClaims.ID == "" || firstClaims.ID == secondClaims.ID {
		t.Fatalf("expected unique token IDs, got %q and %q", firstClaims.ID, secondClaims.ID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m := testManager(t, time.Second, time.Minute)

	token, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, err = m.Verify(token, KindAccess)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsCrossKeyTokens(t *testing.T) {
	// Two managers with different keys; tokens must not verify across them.
	m1 := testManager(t, 15*time.Minute, 7*24*time.Hour)
	m2 := testManager(t, 15*time.Minute, 7*24*time.Hour)

	token, err := m1.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if _, err := m2.Verify(token, KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid across keys, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.Verify(bad, KindAccess); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid, got %v", bad, err)
		}
	}
}

func TestDecodeUnsafeReadsClaimsWithoutVerification(t *testing.T) {
	m := testManager(t, 15*time.Minute, 7*24*time.Hour)

	token, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	claims, err := m.DecodeUnsafe(token)
	if err != nil {
		t.Fatalf("DecodeUnsafe failed: %v", err)
	}
	if claims.Subject != "c1" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
}

func TestNewManagerValidation(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}

	if _, err := NewManager(Config{
		AccessTTL:        0,
		RefreshTTL:       time.Hour,
		SigningMethod:    MethodEd25519,
		AccessPrivateKey: priv,
	}); err == nil {
		t.Fatal("expected zero AccessTTL to be rejected")
	}

	if _, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
	}); err == nil {
		t.Fatal("expected missing keys to be rejected")
	}
}
