package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

const challengeSecretSize = 32

// NewChallengeSecret returns 32 bytes of cryptographic randomness for a
// reset or verification challenge.
func NewChallengeSecret() ([challengeSecretSize]byte, error) {
	var secret [challengeSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashChallengeSecret returns the SHA-256 digest stored in place of the
// raw secret.
func HashChallengeSecret(secret [challengeSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// HashTokenString returns the SHA-256 digest of an opaque token string.
// Refresh ring entries store this digest, never the token itself.
func HashTokenString(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// EncodeDigest renders a digest as compact base64url for use as a Redis
// member key.
func EncodeDigest(digest [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// EncodeChallenge joins a challenge ID and its raw secret into the opaque
// string handed to the end user: "<id>.<base64url(secret)>".
func EncodeChallenge(challengeID string, secret [challengeSecretSize]byte) string {
	return challengeID + "." + base64.RawURLEncoding.EncodeToString(secret[:])
}

// DecodeChallenge splits and decodes a challenge string produced by
// [EncodeChallenge].
func DecodeChallenge(challenge string) (string, [challengeSecretSize]byte, error) {
	var secret [challengeSecretSize]byte

	id, encoded, ok := strings.Cut(challenge, ".")
	if !ok || id == "" {
		return "", secret, errors.New("invalid challenge format")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != challengeSecretSize {
		return "", secret, errors.New("invalid challenge secret size")
	}

	copy(secret[:], raw)
	return id, secret, nil
}
