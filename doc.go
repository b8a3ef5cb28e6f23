// Package staffauth implements the access control and credential lifecycle
// engine for an HR management backend.
//
// The engine issues and verifies signed access/refresh token pairs, tracks
// failed-login lockout state, maintains a bounded per-credential refresh
// token ring, manages one-time password-reset and email-verification
// challenges, and resolves effective permissions from layered role grants
// and per-staff overrides.
//
// Shared mutable authentication state (lockout counters, token rings, reset
// and verification records, rate-limit windows) lives in Redis and is
// mutated through atomic scripts or transactions. Durable HR records
// (credentials, staff profiles, roles) are reached through caller-provided
// repository interfaces ([CredentialProvider], [ProfileProvider]).
//
// Build an [Engine] with the fluent [Builder]:
//
//	engine, err := staffauth.New().
//		WithConfig(staffauth.DefaultConfig()).
//		WithRedis(rdb).
//		WithCredentialProvider(creds).
//		WithProfileProvider(profiles).
//		Build()
package staffauth
