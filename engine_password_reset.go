package staffauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hrplane/staffauth/internal"
	"github.com/hrplane/staffauth/internal/rate"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if e == nil || e.resetStore == nil {
		return "", ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	if err := e.rateLimiter.IncrementReset(ctx, email, ip); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			return "", errors.Join(ErrBackendUnavailable, err)
		}
		e.metricInc(MetricPasswordResetRateLimited)
		return "", ErrResetRateLimited
	}

	credential, err := e.credentials.GetByEmail(ctx, email)
	if err != nil {
		// An unknown email gets the same outward result as a known one.
		// The sleep keeps the miss path inside the hit path's latency band.
		sleepJitter()
		e.metricInc(MetricPasswordResetRequest)
		return "", nil
	}

	resetID := uuid.NewString()
	secret, err := internal.NewChallengeSecret()
	if err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	now := time.Now()
	record := &passwordResetRecord{
		CredentialID: credential.CredentialID,
		SecretHash:   internal.HashChallengeSecret(secret),
		ExpiresAt:    now.Add(e.config.PasswordReset.ResetTTL).Unix(),
		CreatedAt:    now.Unix(),
	}

	if err := e.resetStore.Save(ctx, resetID, record, e.config.PasswordReset.ResetTTL); err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	challenge := internal.EncodeChallenge(resetID, secret)

	if e.delivery != nil {
		if err := e.delivery.DeliverResetToken(ctx, email, challenge); err != nil {
			log.Print("staffauth: reset token delivery failed: ", err)
		}
	}

	e.metricInc(MetricPasswordResetRequest)
	return challenge, nil
}

// ConfirmPasswordReset describes the confirmpasswordreset operation and its observable behavior.
//
// ConfirmPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// ConfirmPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, challenge, newPassword string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}

	if err := e.passwordPolicy.Check(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	resetID, secret, err := internal.DecodeChallenge(challenge)
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return ErrResetTokenInvalid
	}

	record, err := e.resetStore.Consume(ctx, resetID, internal.HashChallengeSecret(secret), e.config.PasswordReset.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, errResetAttemptsExceeded):
			e.metricInc(MetricPasswordResetAttemptsExceeded)
			return ErrResetTokenInvalid
		case errors.Is(err, errResetRedisUnavailable):
			return errors.Join(ErrBackendUnavailable, err)
		default:
			e.metricInc(MetricPasswordResetConfirmFailure)
			return ErrResetTokenInvalid
		}
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}

	if err := e.credentials.UpdatePasswordHash(ctx, record.CredentialID, newHash, time.Now()); err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}

	if err := e.sessionRing.RemoveAll(ctx, record.CredentialID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	if err := e.lockout.Reset(ctx, record.CredentialID); err != nil {
		log.Print("staffauth: lockout reset after password reset failed: ", err)
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	return nil
}

// sleepJitter pads the unknown-email path of reset requests.
func sleepJitter() {
	time.Sleep(time.Duration(20+rand.Intn(21)) * time.Millisecond)
}
