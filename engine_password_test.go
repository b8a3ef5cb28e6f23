package staffauth

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordSuccessInvalidatesSessions(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	result, err := engine.Login(ctx, "alice@example.com", "Old-password1!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	oldHash := cp.hash("c1")

	if err := engine.ChangePassword(ctx, "c1", "Old-password1!", "New-password1!"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if cp.hash("c1") == oldHash {
		t.Fatal("expected password hash to change")
	}

	ok, err := hasher.Verify("New-password1!", cp.hash("c1"))
	if err != nil || !ok {
		t.Fatalf("new hash verify failed, ok=%v err=%v", ok, err)
	}

	if _, err := engine.Refresh(ctx, result.Tokens.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected old refresh token to be dead, got %v", err)
	}

	if _, err := engine.Login(ctx, "alice@example.com", "New-password1!"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	oldHash := cp.hash("c1")

	err := engine.ChangePassword(ctx, "c1", "Wrong-password1!", "New-password1!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if cp.hash("c1") != oldHash {
		t.Fatal("expected hash to remain unchanged on wrong current password")
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Same-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	err := engine.ChangePassword(ctx, "c1", "Same-password1!", "Same-password1!")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestChangePasswordRejectsWeakNewPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	for _, weak := range []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "No-digits-here!", "NoSymbols123"} {
		err := engine.ChangePassword(ctx, "c1", "Old-password1!", weak)
		if !errors.Is(err, ErrPasswordPolicy) {
			t.Fatalf("password %q: expected ErrPasswordPolicy, got %v", weak, err)
		}
	}

	if cp.updatePasswordCalls != 0 {
		t.Fatal("expected no provider writes for rejected passwords")
	}
}

func TestChangePasswordUnknownCredential(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	err := engine.ChangePassword(ctx, "missing", "Old-password1!", "New-password1!")
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestChangePasswordReportsInvalidationFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	oldHash := cp.hash("c1")

	// Redis dies between the hash update and session invalidation.
	mr.Close()

	err := engine.ChangePassword(ctx, "c1", "Old-password1!", "New-password1!")
	if !errors.Is(err, ErrSessionInvalidationFailed) {
		t.Fatalf("expected ErrSessionInvalidationFailed, got %v", err)
	}

	if cp.hash("c1") == oldHash {
		t.Fatal("expected password hash to remain updated despite invalidation failure")
	}
}

func TestCreateCredential(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	cp, pp := seedStaff(t, hasher, "Old-password1!")
	engine := newTestEngine(t, testConfig(t), rdb, cp, pp)

	created, err := engine.CreateCredential(ctx, "bob@example.com", "Fresh-password1!")
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	if created.Email != "bob@example.com" {
		t.Fatalf("unexpected credential: %+v", created)
	}

	ok, err := hasher.Verify("Fresh-password1!", created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify, ok=%v err=%v", ok, err)
	}

	_, err = engine.CreateCredential(ctx, "bob@example.com", "Fresh-password1!")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	_, err = engine.CreateCredential(ctx, "carol@example.com", "weak")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}
