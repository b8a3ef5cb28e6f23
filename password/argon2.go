package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrHashMalformed is an exported constant or variable used by the access control engine.
var ErrHashMalformed = errors.New("malformed password hash")

// ErrWeakParams is an exported constant or variable used by the access control engine.
var ErrWeakParams = errors.New("argon2 parameters below floor")

// Config carries the Argon2id cost parameters for staff credential hashes.
// The zero value is invalid; [NewArgon2] rejects anything below the floors.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// floor is the weakest parameter set NewArgon2 accepts. Stored hashes whose
// costs fall below it are refused as malformed rather than verified.
var floor = Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// Password bytes below this are refused outright, matching the composition
// policy's minimum length for ASCII input.
const minPasswordBytes = 8

// Argon2 hashes and verifies staff passwords as Argon2id PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash). A single instance is safe
// for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 describes the newargon2 operation and its observable behavior.
//
// NewArgon2 may return an error when input validation, dependency calls, or security checks fail.
// NewArgon2 does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < floor.Memory:
		return nil, fmt.Errorf("%w: memory must be >= %d KB", ErrWeakParams, floor.Memory)
	case cfg.Time < floor.Time:
		return nil, fmt.Errorf("%w: time must be >= %d", ErrWeakParams, floor.Time)
	case cfg.Parallelism < floor.Parallelism:
		return nil, fmt.Errorf("%w: parallelism must be >= %d", ErrWeakParams, floor.Parallelism)
	case cfg.SaltLength < floor.SaltLength:
		return nil, fmt.Errorf("%w: salt length must be >= %d", ErrWeakParams, floor.SaltLength)
	case cfg.KeyLength < floor.KeyLength:
		return nil, fmt.Errorf("%w: key length must be >= %d", ErrWeakParams, floor.KeyLength)
	}

	return &Argon2{config: cfg}, nil
}

// Hash derives an Argon2id hash for the password under the configured costs
// and returns it PHC-encoded with a fresh random salt. Password bytes are
// used exactly as provided; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < minPasswordBytes {
		return "", fmt.Errorf("password must be at least %d bytes", minPasswordBytes)
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	var b strings.Builder
	b.WriteString("$argon2id$v=")
	b.WriteString(strconv.Itoa(argon2.Version))
	b.WriteString("$m=")
	b.WriteString(strconv.FormatUint(uint64(a.config.Memory), 10))
	b.WriteString(",t=")
	b.WriteString(strconv.FormatUint(uint64(a.config.Time), 10))
	b.WriteString(",p=")
	b.WriteString(strconv.FormatUint(uint64(a.config.Parallelism), 10))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(key))

	return b.String(), nil
}

// Verify recomputes the hash under the parameters stored in encodedHash and
// compares in constant time. A wrong password returns (false, nil); only a
// hash that cannot be interpreted returns an error.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), stored.salt, stored.time, stored.memory, stored.parallelism, uint32(len(stored.key)))

	return subtle.ConstantTimeCompare(computed, stored.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced under weaker costs
// than this instance's configuration. The login path rehashes when it
// returns true so stored credentials converge on the current parameters.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := a.config.Memory > stored.memory ||
		a.config.Time > stored.time ||
		a.config.Parallelism > stored.parallelism ||
		a.config.KeyLength != uint32(len(stored.key))

	return weaker, nil
}

// storedHash is one decoded PHC string. Key length is implied by the
// decoded key bytes.
type storedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*storedHash, error) {
	rest, ok := strings.CutPrefix(encoded, "$argon2id$v=")
	if !ok {
		return nil, fmt.Errorf("%w: not an argon2id PHC string", ErrHashMalformed)
	}

	versionField, rest, ok := strings.Cut(rest, "$")
	if !ok {
		return nil, fmt.Errorf("%w: missing cost section", ErrHashMalformed)
	}
	version, err := strconv.Atoi(versionField)
	if err != nil {
		return nil, fmt.Errorf("%w: bad version", ErrHashMalformed)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrHashMalformed, version)
	}

	costField, rest, ok := strings.Cut(rest, "$")
	if !ok {
		return nil, fmt.Errorf("%w: missing salt section", ErrHashMalformed)
	}
	stored := &storedHash{}
	if err := decodeCosts(costField, stored); err != nil {
		return nil, err
	}

	saltField, keyField, ok := strings.Cut(rest, "$")
	if !ok || strings.Contains(keyField, "$") {
		return nil, fmt.Errorf("%w: wrong field count", ErrHashMalformed)
	}

	if stored.salt, err = base64.StdEncoding.DecodeString(saltField); err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrHashMalformed)
	}
	if uint32(len(stored.salt)) < floor.SaltLength {
		return nil, fmt.Errorf("%w: salt too short", ErrHashMalformed)
	}
	if stored.key, err = base64.StdEncoding.DecodeString(keyField); err != nil {
		return nil, fmt.Errorf("%w: bad key encoding", ErrHashMalformed)
	}
	if len(stored.key) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrHashMalformed)
	}

	return stored, nil
}

// decodeCosts parses the "m=...,t=...,p=..." section. Field order is fixed
// by Hash; decoding accepts only that order.
func decodeCosts(field string, stored *storedHash) error {
	var m, t, p uint64

	for _, want := range []struct {
		prefix string
		dst    *uint64
		bits   int
	}{
		{"m=", &m, 32},
		{"t=", &t, 32},
		{"p=", &p, 8},
	} {
		var entry string
		entry, field, _ = strings.Cut(field, ",")
		value, ok := strings.CutPrefix(entry, want.prefix)
		if !ok {
			return fmt.Errorf("%w: expected %q cost", ErrHashMalformed, want.prefix)
		}
		parsed, err := strconv.ParseUint(value, 10, want.bits)
		if err != nil || parsed == 0 {
			return fmt.Errorf("%w: bad %q cost", ErrHashMalformed, want.prefix)
		}
		*want.dst = parsed
	}
	if field != "" {
		return fmt.Errorf("%w: trailing cost fields", ErrHashMalformed)
	}

	if uint32(m) < floor.Memory || uint32(t) < floor.Time || uint8(p) < floor.Parallelism {
		return fmt.Errorf("%w: stored costs below floor", ErrHashMalformed)
	}

	stored.memory = uint32(m)
	stored.time = uint32(t)
	stored.parallelism = uint8(p)
	return nil
}
