package staffauth

import (
	"context"
	"errors"
	"time"

	"github.com/hrplane/staffauth/internal/limiters"
	"github.com/hrplane/staffauth/internal/rate"
	"github.com/hrplane/staffauth/jwt"
	"github.com/hrplane/staffauth/password"
	"github.com/hrplane/staffauth/permission"
	"github.com/hrplane/staffauth/session"
)

// Engine defines a public type used by staffauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config            Config
	sessionRing       *session.Store
	rateLimiter       *rate.Limiter
	lockout           *limiters.Lockout
	resetStore        *passwordResetStore
	verificationStore *emailVerificationStore
	metrics           *Metrics
	passwordHash      *password.Argon2
	passwordPolicy    password.Policy
	jwtManager        *jwt.Manager
	credentials       CredentialProvider
	profiles          ProfileProvider
	delivery          ResetTokenDelivery
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, delta uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, delta)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthContext, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	auth, err := e.authenticate(ctx, accessToken)
	e.metricObserve(MetricAuthenticateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return auth, nil
}

func (e *Engine) authenticate(ctx context.Context, accessToken string) (*AuthContext, error) {
	claims, err := e.jwtManager.Verify(accessToken, jwt.KindAccess)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}

	credential, err := e.credentials.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	locked, _, err := e.lockout.Status(ctx, credential.CredentialID)
	if err != nil {
		return nil, errors.Join(ErrBackendUnavailable, err)
	}
	if locked {
		return nil, ErrAccountLocked
	}

	profile, err := e.profiles.GetByCredentialID(ctx, credential.CredentialID)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if !profile.Active {
		return nil, ErrAccountInactive
	}

	return &AuthContext{
		Identity: Identity{
			CredentialID: credential.CredentialID,
			Email:        credential.Email,
			StaffID:      profile.StaffID,
			Roles:        claims.Roles,
		},
		Profile: publicProfile(*profile),
	}, nil
}

// RequireRoles describes the requireroles operation and its observable behavior.
//
// RequireRoles may return an error when input validation, dependency calls, or security checks fail.
// RequireRoles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequireRoles(auth *AuthContext, roles ...string) error {
	if auth == nil {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}

	// The decision runs against the freshly loaded profile roles, not the
	// role list cached in the token; a revocation after issuance takes
	// effect on the next authenticated call.
	held := make(map[string]struct{}, len(auth.Profile.Roles))
	for _, r := range auth.Profile.Roles {
		held[r] = struct{}{}
	}

	for _, want := range roles {
		if _, ok := held[want]; ok {
			return nil
		}
	}

	e.metricInc(MetricPermissionDenied)
	return ErrPermissionDenied
}

// RequirePermission describes the requirepermission operation and its observable behavior.
//
// RequirePermission may return an error when input validation, dependency calls, or security checks fail.
// RequirePermission does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequirePermission(ctx context.Context, auth *AuthContext, resource string, action permission.Action) error {
	if auth == nil {
		return ErrUnauthenticated
	}

	// Grants and overrides are re-read on every check so a revocation
	// takes effect before the access token expires.
	profile, err := e.profiles.GetByCredentialID(ctx, auth.Identity.CredentialID)
	if err != nil {
		return ErrUnauthenticated
	}
	if !profile.Active {
		return ErrAccountInactive
	}

	if !permission.Resolve(profile.Roles, profile.Overrides, resource, action) {
		e.metricInc(MetricPermissionDenied)
		return ErrPermissionDenied
	}

	return nil
}
