package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod defines a public type used by staffauth APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the access control engine.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the access control engine.
	MethodHS256 SigningMethod = "hs256"
)

// TokenKind defines a public type used by staffauth APIs.
//
// TokenKind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenKind string

const (
	// KindAccess is an exported constant or variable used by the access control engine.
	KindAccess TokenKind = "access"
	// KindRefresh is an exported constant or variable used by the access control engine.
	KindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenExpired is an exported constant or variable used by the access control engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is an exported constant or variable used by the access control engine.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config defines a public type used by staffauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod

	// Access and refresh tokens are signed and verified with independent
	// key material.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims defines a public type used by staffauth APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	Email   string   `json:"email"`
	StaffID string   `json:"staff_id,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Kind    string   `json:"kind"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is issued for. CredentialID becomes the
// registered subject claim.
type Subject struct {
	CredentialID string
	Email        string
	StaffID      string
	Roles        []string
}

// Manager defines a public type used by staffauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.AccessPrivateKey) == 0 || len(cfg.RefreshPrivateKey) == 0 {
			return nil, errors.New("hs256 requires access and refresh private keys")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.AccessPrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPrivateKey(cfg.RefreshPrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.AccessPublicKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.RefreshPublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// IssueAccess describes the issueaccess operation and its observable behavior.
//
// IssueAccess may return an error when input validation, dependency calls, or security checks fail.
// IssueAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) IssueAccess(sub Subject) (string, error) {
	return m.issue(sub, KindAccess, m.config.AccessTTL)
}

// IssueRefresh describes the issuerefresh operation and its observable behavior.
//
// IssueRefresh may return an error when input validation, dependency calls, or security checks fail.
// IssueRefresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) IssueRefresh(sub Subject) (string, error) {
	return m.issue(sub, KindRefresh, m.config.RefreshTTL)
}

func (m *Manager) issue(sub Subject, kind TokenKind, ttl time.Duration) (string, error) {
	if sub.CredentialID == "" {
		return "", errors.New("subject credential id required")
	}

	now := time.Now()
	claims := Claims{
		Email:   sub.Email,
		StaffID: sub.StaffID,
		Kind:    string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps have second precision and Ed25519 signing is
			// deterministic; the jti keeps two tokens minted for the same
			// subject within one second distinct.
			ID:        uuid.NewString(),
			Subject:   sub.CredentialID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	// Role names ride only in access tokens; refresh tokens carry identity
	// alone so stale roles never survive a refresh.
	if kind == KindAccess {
		claims.Roles = sub.Roles
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method(), claims)

	signKey, err := m.signKey(kind)
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Verify(tokenStr string, kind TokenKind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey(kind)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != string(kind) {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// DecodeUnsafe parses the claims without any signature or expiry
// verification. It exists for best-effort flows (logout) and diagnostics;
// never use its output to authorize anything.
func (m *Manager) DecodeUnsafe(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey(kind TokenKind) (interface{}, error) {
	raw := m.config.AccessPrivateKey
	if kind == KindRefresh {
		raw = m.config.RefreshPrivateKey
	}

	switch m.config.SigningMethod {
	case MethodHS256:
		return raw, nil
	default:
		return parseEdPrivateKey(raw)
	}
}

func (m *Manager) verifyKey(kind TokenKind) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		if kind == KindRefresh {
			return m.config.RefreshPrivateKey, nil
		}
		return m.config.AccessPrivateKey, nil
	default:
		raw := m.config.AccessPublicKey
		if kind == KindRefresh {
			raw = m.config.RefreshPublicKey
		}
		return parseEdPublicKey(raw)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
