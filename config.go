package staffauth

import (
	"errors"
	"time"
)

// Config defines a public type used by staffauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT               JWTConfig
	Session           SessionConfig
	Password          PasswordConfig
	Lockout           LockoutConfig
	Security          SecurityConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by staffauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional

	// Access and refresh tokens are signed with independent keys so a
	// leaked refresh key never validates access tokens and vice versa.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by staffauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string

	// MaxActiveTokens caps the refresh-token ring per credential; the
	// oldest entry is evicted when a login would exceed it.
	MaxActiveTokens int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by staffauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
	MinLength      int
}

// LockoutConfig defines a public type used by staffauth APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// SecurityConfig defines a public type used by staffauth APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	EnableIPThrottle     bool
	MaxLoginAttempts     int
	LoginWindow          time.Duration
	MaxResetRequests     int
	ResetWindow          time.Duration
	RequireVerifiedEmail bool

	// RetryAfterHint is surfaced to HTTP callers on rate-limited requests.
	RetryAfterHint time.Duration
}

// PasswordResetConfig defines a public type used by staffauth APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	ResetTTL    time.Duration
	MaxAttempts int
}

// EmailVerificationConfig defines a public type used by staffauth APIs.
//
// EmailVerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailVerificationConfig struct {
	VerificationTTL time.Duration
	MaxAttempts     int
}

// MetricsConfig defines a public type used by staffauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: 15m access tokens, 7d
// refresh tokens, 5-failure lockout for 30m, a 5-entry token ring, 1h reset
// challenges, and 24h verification challenges.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "staffauth",
		},
		Session: SessionConfig{
			RedisPrefix:     "sa",
			MaxActiveTokens: 5,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			MinLength:      8,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Security: SecurityConfig{
			EnableIPThrottle:     true,
			MaxLoginAttempts:     20,
			LoginWindow:          15 * time.Minute,
			MaxResetRequests:     5,
			ResetWindow:          time.Hour,
			RequireVerifiedEmail: false,
			RetryAfterHint:       time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			ResetTTL:    time.Hour,
			MaxAttempts: 5,
		},
		EmailVerification: EmailVerificationConfig{
			VerificationTTL: 24 * time.Hour,
			MaxAttempts:     5,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.AccessPrivateKey) == 0 {
		return errors.New("JWT AccessPrivateKey is required")
	}
	if len(c.JWT.RefreshPrivateKey) == 0 {
		return errors.New("JWT RefreshPrivateKey is required")
	}
	if c.JWT.SigningMethod == "ed25519" {
		if len(c.JWT.AccessPublicKey) == 0 || len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires access and refresh public keys")
		}
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.MaxActiveTokens <= 0 {
		return errors.New("Session MaxActiveTokens must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginWindow <= 0 {
		return errors.New("LoginWindow must be > 0")
	}
	if c.Security.MaxResetRequests <= 0 {
		return errors.New("MaxResetRequests must be > 0")
	}
	if c.Security.ResetWindow <= 0 {
		return errors.New("ResetWindow must be > 0")
	}
	if c.Security.RetryAfterHint < 0 {
		return errors.New("RetryAfterHint must be >= 0")
	}

	// Password reset
	if c.PasswordReset.ResetTTL <= 0 {
		return errors.New("PasswordReset ResetTTL must be > 0")
	}
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}

	// Email verification
	if c.EmailVerification.VerificationTTL <= 0 {
		return errors.New("EmailVerification VerificationTTL must be > 0")
	}
	if c.EmailVerification.MaxAttempts <= 0 {
		return errors.New("EmailVerification MaxAttempts must be > 0")
	}

	return nil
}
