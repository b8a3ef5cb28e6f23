package staffauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/hrplane/staffauth/internal/limiters"
	"github.com/hrplane/staffauth/internal/rate"
	"github.com/hrplane/staffauth/jwt"
	"github.com/hrplane/staffauth/password"
	"github.com/hrplane/staffauth/session"
)

// Builder defines a public type used by staffauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	credentials   CredentialProvider
	profiles      ProfileProvider
	resetDelivery ResetTokenDelivery

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithCredentialProvider describes the withcredentialprovider operation and its observable behavior.
//
// WithCredentialProvider may return an error when input validation, dependency calls, or security checks fail.
// WithCredentialProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialProvider(cp CredentialProvider) *Builder {
	b.credentials = cp
	return b
}

// WithProfileProvider describes the withprofileprovider operation and its observable behavior.
//
// WithProfileProvider may return an error when input validation, dependency calls, or security checks fail.
// WithProfileProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProfileProvider(pp ProfileProvider) *Builder {
	b.profiles = pp
	return b
}

// WithResetTokenDelivery describes the withresettokendelivery operation and its observable behavior.
//
// WithResetTokenDelivery may return an error when input validation, dependency calls, or security checks fail.
// WithResetTokenDelivery does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithResetTokenDelivery(d ResetTokenDelivery) *Builder {
	b.resetDelivery = d
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential provider required")
	}

	if b.profiles == nil {
		return nil, errors.New("profile provider required")
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		credentials: b.credentials,
		profiles:    b.profiles,
		delivery:    b.resetDelivery,
	}

	engine.sessionRing = session.NewStore(
		b.redis,
		cfg.Session.RedisPrefix,
		cfg.Session.MaxActiveTokens,
	)
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle: cfg.Security.EnableIPThrottle,
		MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
		LoginWindow:      cfg.Security.LoginWindow,
		MaxResetRequests: cfg.Security.MaxResetRequests,
		ResetWindow:      cfg.Security.ResetWindow,
	})
	engine.lockout = limiters.NewLockout(b.redis, limiters.LockoutConfig{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	engine.resetStore = newPasswordResetStore(b.redis)
	engine.verificationStore = newEmailVerificationStore(b.redis)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.passwordPolicy = password.NewPolicy(cfg.Password.MinLength)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:         cfg.JWT.AccessTTL,
		RefreshTTL:        cfg.JWT.RefreshTTL,
		SigningMethod:     jwt.SigningMethod(cfg.JWT.SigningMethod),
		AccessPrivateKey:  cloneBytes(cfg.JWT.AccessPrivateKey),
		AccessPublicKey:   cloneBytes(cfg.JWT.AccessPublicKey),
		RefreshPrivateKey: cloneBytes(cfg.JWT.RefreshPrivateKey),
		RefreshPublicKey:  cloneBytes(cfg.JWT.RefreshPublicKey),
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
		Leeway:            cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
