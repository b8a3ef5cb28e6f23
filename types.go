package staffauth

import (
	"context"
	"time"

	"github.com/hrplane/staffauth/permission"
)

// CredentialRecord is the durable credential aggregate returned by
// [CredentialProvider]. It carries the login identity and the Argon2id
// password hash; the hash never appears in any public projection.
type CredentialRecord struct {
	CredentialID      string
	Email             string
	PasswordHash      string
	EmailVerified     bool
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// CreateCredentialInput is the input for [CredentialProvider.Create].
type CreateCredentialInput struct {
	Email         string
	PasswordHash  string
	EmailVerified bool
}

// CredentialProvider is the primary interface callers implement to connect
// the engine to their credential database. Create must reject a duplicate
// email with [ErrDuplicateEmail]; lookups must return
// [ErrCredentialNotFound] for unknown identities.
//
// Implementations are expected to be safe for concurrent use.
type CredentialProvider interface {
	GetByEmail(ctx context.Context, email string) (*CredentialRecord, error)
	GetByID(ctx context.Context, credentialID string) (*CredentialRecord, error)
	Create(ctx context.Context, input CreateCredentialInput) (*CredentialRecord, error)
	UpdatePasswordHash(ctx context.Context, credentialID, newHash string, changedAt time.Time) error
	MarkEmailVerified(ctx context.Context, credentialID string) error
}

// ProfileRecord is the resolved staff profile projection returned by
// [ProfileProvider]. Roles and overrides arrive fully expanded so the
// engine can resolve permissions without further lookups.
type ProfileRecord struct {
	ProfileID    string
	StaffID      string
	CredentialID string
	Email        string
	FullName     string
	Active       bool
	LastLogin    *time.Time
	Roles        []permission.RoleGrant
	Overrides    []permission.Override
}

// RoleNames returns the names of the profile's active roles, in assignment
// order. Inactive roles are excluded.
func (p ProfileRecord) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		if r.Active {
			names = append(names, r.Name)
		}
	}
	return names
}

// ProfileProvider loads staff profiles by credential and records login
// activity. GetByCredentialID must return [ErrProfileNotFound] when no
// profile is linked to the credential.
type ProfileProvider interface {
	GetByCredentialID(ctx context.Context, credentialID string) (*ProfileRecord, error)
	UpdateLastLogin(ctx context.Context, profileID string, at time.Time) error
}

// ResetTokenDelivery hands a raw password-reset challenge to an out-of-band
// channel (typically email). The HTTP layer never echoes the challenge in a
// response body.
type ResetTokenDelivery interface {
	DeliverResetToken(ctx context.Context, email, challenge string) error
}

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// PublicProfile is the credential-safe view of a staff member returned by
// [Engine.Login] and [Engine.Authenticate].
type PublicProfile struct {
	StaffID   string
	Email     string
	FullName  string
	Roles     []string
	LastLogin *time.Time
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Tokens  TokenPair
	Profile PublicProfile
}

// Identity is the verified token subject attached to authenticated calls.
type Identity struct {
	CredentialID string
	Email        string
	StaffID      string
	Roles        []string
}

// AuthContext is returned by [Engine.Authenticate]. It pairs the verified
// token identity with the credential-safe view of the freshly loaded
// profile backing it.
type AuthContext struct {
	Identity Identity
	Profile  PublicProfile
}

func publicProfile(p ProfileRecord) PublicProfile {
	return PublicProfile{
		StaffID:   p.StaffID,
		Email:     p.Email,
		FullName:  p.FullName,
		Roles:     p.RoleNames(),
		LastLogin: p.LastLogin,
	}
}
