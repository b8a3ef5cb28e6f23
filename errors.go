package staffauth

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the access control engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the access control engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is an exported constant or variable used by the access control engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountUnverified is an exported constant or variable used by the access control engine.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrUnauthenticated is an exported constant or variable used by the access control engine.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied is an exported constant or variable used by the access control engine.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTokenInvalid is an exported constant or variable used by the access control engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the access control engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrPasswordPolicy is an exported constant or variable used by the access control engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the access control engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrDuplicateEmail is an exported constant or variable used by the access control engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrCredentialNotFound is an exported constant or variable used by the access control engine.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrProfileNotFound is an exported constant or variable used by the access control engine.
	ErrProfileNotFound = errors.New("staff profile not found")
	// ErrResetTokenInvalid is an exported constant or variable used by the access control engine.
	ErrResetTokenInvalid = errors.New("password reset challenge invalid")
	// ErrVerificationInvalid is an exported constant or variable used by the access control engine.
	ErrVerificationInvalid = errors.New("email verification challenge invalid")
	// ErrLoginRateLimited is an exported constant or variable used by the access control engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited is an exported constant or variable used by the access control engine.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the access control engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrBackendUnavailable is an exported constant or variable used by the access control engine.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the access control engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
