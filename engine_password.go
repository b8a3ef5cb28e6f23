package staffauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// CreateCredential describes the createcredential operation and its observable behavior.
//
// CreateCredential may return an error when input validation, dependency calls, or security checks fail.
// CreateCredential does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateCredential(ctx context.Context, email, plainPassword string) (*CredentialRecord, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidCredentials)
	}

	if err := e.passwordPolicy.Check(plainPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}

	credential, err := e.credentials.Create(ctx, CreateCredentialInput{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricCredentialDuplicate)
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Join(ErrBackendUnavailable, err)
	}

	e.metricInc(MetricCredentialCreated)
	return credential, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, credentialID, currentPassword, newPassword string) error {
	if e == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if err := e.passwordPolicy.Check(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	credential, err := e.credentials.GetByID(ctx, credentialID)
	if err != nil {
		return ErrCredentialNotFound
	}

	ok, err := e.passwordHash.Verify(currentPassword, credential.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidCurrent)
		return ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}

	now := time.Now()
	if err := e.credentials.UpdatePasswordHash(ctx, credentialID, newHash, now); err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}

	// All refresh tokens die with the old password. Failing that is
	// reported, not swallowed, because stale sessions would outlive the
	// credential they were minted for.
	if err := e.sessionRing.RemoveAll(ctx, credentialID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	if err := e.lockout.Reset(ctx, credentialID); err != nil {
		log.Print("staffauth: lockout reset after password change failed: ", err)
	}
	if err := e.rateLimiter.ResetLogin(ctx, credential.Email, clientIPFromContext(ctx)); err != nil {
		log.Print("staffauth: login counter reset after password change failed: ", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	return nil
}
