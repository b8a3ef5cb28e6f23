package staffauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hrplane/staffauth/internal"
)

// RequestEmailVerification describes the requestemailverification operation and its observable behavior.
//
// RequestEmailVerification may return an error when input validation, dependency calls, or security checks fail.
// RequestEmailVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestEmailVerification(ctx context.Context, credentialID string) (string, error) {
	if e == nil || e.verificationStore == nil {
		return "", ErrEngineNotReady
	}

	credential, err := e.credentials.GetByID(ctx, credentialID)
	if err != nil {
		return "", ErrCredentialNotFound
	}
	if credential.EmailVerified {
		return "", ErrVerificationInvalid
	}

	verificationID := uuid.NewString()
	secret, err := internal.NewChallengeSecret()
	if err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	now := time.Now()
	record := &emailVerificationRecord{
		CredentialID: credential.CredentialID,
		SecretHash:   internal.HashChallengeSecret(secret),
		ExpiresAt:    now.Add(e.config.EmailVerification.VerificationTTL).Unix(),
		CreatedAt:    now.Unix(),
	}

	if err := e.verificationStore.Save(ctx, verificationID, record, e.config.EmailVerification.VerificationTTL); err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	e.metricInc(MetricEmailVerificationRequest)
	return internal.EncodeChallenge(verificationID, secret), nil
}

// ConfirmEmailVerification describes the confirmemailverification operation and its observable behavior.
//
// ConfirmEmailVerification may return an error when input validation, dependency calls, or security checks fail.
// ConfirmEmailVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, challenge string) error {
	if e == nil || e.verificationStore == nil {
		return ErrEngineNotReady
	}

	verificationID, secret, err := internal.DecodeChallenge(challenge)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		return ErrVerificationInvalid
	}

	record, err := e.verificationStore.Consume(ctx, verificationID, internal.HashChallengeSecret(secret), e.config.EmailVerification.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, errVerificationAttemptsExceeded):
			e.metricInc(MetricEmailVerificationAttemptsExceeded)
			return ErrVerificationInvalid
		case errors.Is(err, errVerificationRedisUnavailable):
			return errors.Join(ErrBackendUnavailable, err)
		default:
			e.metricInc(MetricEmailVerificationFailure)
			return ErrVerificationInvalid
		}
	}

	if err := e.credentials.MarkEmailVerified(ctx, record.CredentialID); err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	return nil
}
