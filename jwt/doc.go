// Package jwt issues and verifies the engine's signed access and refresh
// tokens. The two token kinds are signed with independent keys and carry a
// kind claim so one can never be presented in place of the other.
package jwt
