package staffauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hrplane/staffauth/internal"
	"github.com/hrplane/staffauth/internal/rate"
	"github.com/hrplane/staffauth/jwt"
	"github.com/hrplane/staffauth/session"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			return nil, errors.Join(ErrBackendUnavailable, err)
		}
		e.metricInc(MetricLoginRateLimited)
		return nil, ErrLoginRateLimited
	}

	if plainPassword == "" {
		return nil, e.loginFailure(ctx, email, ip)
	}

	credential, err := e.credentials.GetByEmail(ctx, email)
	if err != nil {
		// Unknown and known emails share one failure path so response
		// shape never reveals which one occurred.
		return nil, e.loginFailure(ctx, email, ip)
	}

	locked, _, err := e.lockout.Status(ctx, credential.CredentialID)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		return nil, ErrAccountLocked
	}

	ok, err := e.passwordHash.Verify(plainPassword, credential.PasswordHash)
	if err != nil || !ok {
		nowLocked, lockErr := e.lockout.RecordFailure(ctx, credential.CredentialID)
		if lockErr != nil {
			return nil, errors.Join(ErrBackendUnavailable, lockErr)
		}
		if nowLocked {
			e.metricInc(MetricLockoutTriggered)
			return nil, ErrAccountLocked
		}
		return nil, e.loginFailure(ctx, email, ip)
	}

	if e.config.Security.RequireVerifiedEmail && !credential.EmailVerified {
		return nil, ErrAccountUnverified
	}

	profile, err := e.profiles.GetByCredentialID(ctx, credential.CredentialID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if !profile.Active {
		return nil, ErrAccountInactive
	}

	if err := e.lockout.Reset(ctx, credential.CredentialID); err != nil {
		log.Print("staffauth: lockout reset failed: ", err)
	}
	if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
		log.Print("staffauth: login counter reset failed: ", err)
	}

	if e.config.Password.UpgradeOnLogin {
		if upgraded, hashErr := e.maybeUpgradeHash(ctx, credential, plainPassword); hashErr != nil {
			log.Print("staffauth: password hash upgrade update failed: ", hashErr)
		} else if upgraded {
			log.Print("staffauth: password hash upgraded for credential ", credential.CredentialID)
		}
	}

	pair, err := e.issueTokenPair(ctx, credential, profile)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := e.profiles.UpdateLastLogin(ctx, profile.ProfileID, now); err != nil {
		log.Print("staffauth: last login update failed: ", err)
	}
	profile.LastLogin = &now

	e.metricInc(MetricLoginSuccess)

	return &LoginResult{
		Tokens:  *pair,
		Profile: publicProfile(*profile),
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, email, ip string) error {
	if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			return errors.Join(ErrBackendUnavailable, err)
		}
		e.metricInc(MetricLoginRateLimited)
		return ErrLoginRateLimited
	}
	e.metricInc(MetricLoginFailure)
	return ErrInvalidCredentials
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, credential *CredentialRecord, plainPassword string) (bool, error) {
	needs, err := e.passwordHash.NeedsUpgrade(credential.PasswordHash)
	if err != nil || !needs {
		return false, err
	}

	newHash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return false, err
	}

	if err := e.credentials.UpdatePasswordHash(ctx, credential.CredentialID, newHash, credential.PasswordChangedAt); err != nil {
		return false, err
	}
	credential.PasswordHash = newHash
	return true, nil
}

func (e *Engine) issueTokenPair(ctx context.Context, credential *CredentialRecord, profile *ProfileRecord) (*TokenPair, error) {
	subject := jwt.Subject{
		CredentialID: credential.CredentialID,
		Email:        credential.Email,
		StaffID:      profile.StaffID,
		Roles:        profile.RoleNames(),
	}

	accessToken, err := e.jwtManager.IssueAccess(subject)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}

	refreshToken, err := e.jwtManager.IssueRefresh(subject)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}

	now := time.Now()
	rec := &session.Record{
		ExpiresAt:     now.Add(e.config.JWT.RefreshTTL).Unix(),
		CreatedAt:     now.Unix(),
		DeviceInfo:    deviceInfoFromContext(ctx),
		SourceAddress: clientIPFromContext(ctx),
	}

	evicted, err := e.sessionRing.Add(ctx, credential.CredentialID, internal.HashTokenString(refreshToken), rec)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}
	if evicted > 0 {
		e.metricAdd(MetricTokenEvicted, uint64(evicted))
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.jwtManager.Verify(refreshToken, jwt.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return "", ErrTokenInvalid
	}

	credentialID := claims.Subject

	_, err = e.sessionRing.Contains(ctx, credentialID, internal.HashTokenString(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			e.metricInc(MetricRefreshFailure)
			return "", ErrTokenInvalid
		}
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	locked, _, err := e.lockout.Status(ctx, credentialID)
	if err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}
	if locked {
		e.metricInc(MetricRefreshFailure)
		return "", ErrAccountLocked
	}

	credential, err := e.credentials.GetByID(ctx, credentialID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return "", ErrTokenInvalid
	}

	profile, err := e.profiles.GetByCredentialID(ctx, credentialID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return "", ErrTokenInvalid
	}
	if !profile.Active {
		e.metricInc(MetricRefreshFailure)
		return "", ErrAccountInactive
	}

	// Roles are re-read from the profile at refresh time; a role change
	// reaches new access tokens without waiting out the refresh TTL.
	accessToken, err := e.jwtManager.IssueAccess(jwt.Subject{
		CredentialID: credential.CredentialID,
		Email:        credential.Email,
		StaffID:      profile.StaffID,
		Roles:        profile.RoleNames(),
	})
	if err != nil {
		return "", errors.Join(ErrBackendUnavailable, err)
	}

	e.metricInc(MetricRefreshSuccess)
	return accessToken, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.jwtManager == nil {
		return nil
	}

	// Logout never reports why it did nothing. A forged or expired token
	// gets the same nil as a real one.
	claims, err := e.jwtManager.DecodeUnsafe(refreshToken)
	if err != nil || claims.Subject == "" {
		return nil
	}

	if err := e.sessionRing.Remove(ctx, claims.Subject, internal.HashTokenString(refreshToken)); err != nil {
		log.Print("staffauth: logout ring removal failed: ", err)
		return nil
	}

	e.metricInc(MetricLogout)
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, credentialID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if credentialID == "" {
		return ErrUnauthenticated
	}

	if err := e.sessionRing.RemoveAll(ctx, credentialID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	e.metricInc(MetricLogoutAll)
	return nil
}

// ActiveSessions describes the activesessions operation and its observable behavior.
//
// ActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveSessions(ctx context.Context, credentialID string) ([]session.Entry, error) {
	if e == nil || e.sessionRing == nil {
		return nil, ErrEngineNotReady
	}
	entries, err := e.sessionRing.List(ctx, credentialID)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}
	return entries, nil
}
