package password

import (
	"errors"
	"strings"
	"unicode"
)

// Policy enforces the backend's password composition rules: a minimum
// length plus at least one uppercase letter, one lowercase letter, one
// digit, and one symbol from [Symbols].
type Policy struct {
	MinLength int
}

// Symbols is the fixed punctuation set that satisfies the symbol
// requirement. Whitespace and control characters never count.
const Symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// ErrPolicyViolation is an exported constant or variable used by the access control engine.
var ErrPolicyViolation = errors.New("password does not meet policy")

// NewPolicy creates a [Policy] with the given minimum length. Lengths below
// 8 are raised to 8.
func NewPolicy(minLength int) Policy {
	if minLength < 8 {
		minLength = 8
	}
	return Policy{MinLength: minLength}
}

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or security checks fail.
// Check does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p Policy) Check(password string) error {
	runes := []rune(password)
	if len(runes) < p.MinLength {
		return ErrPolicyViolation
	}

	var upper, lower, digit, symbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return ErrPolicyViolation
	}
	return nil
}
