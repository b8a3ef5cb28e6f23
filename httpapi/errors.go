package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	staffauth "github.com/hrplane/staffauth"
)

// statusFor maps engine errors onto the HTTP taxonomy. Unknown errors
// fall through to 500 so backend details never leak to callers.
func statusFor(err error) int {
	switch {
	case errors.Is(err, staffauth.ErrInvalidCredentials),
		errors.Is(err, staffauth.ErrUnauthenticated),
		errors.Is(err, staffauth.ErrTokenInvalid),
		errors.Is(err, staffauth.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, staffauth.ErrAccountLocked),
		errors.Is(err, staffauth.ErrAccountInactive),
		errors.Is(err, staffauth.ErrAccountUnverified),
		errors.Is(err, staffauth.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, staffauth.ErrPasswordPolicy),
		errors.Is(err, staffauth.ErrPasswordReuse),
		errors.Is(err, staffauth.ErrResetTokenInvalid),
		errors.Is(err, staffauth.ErrVerificationInvalid):
		return http.StatusBadRequest
	case errors.Is(err, staffauth.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, staffauth.ErrLoginRateLimited),
		errors.Is(err, staffauth.ErrResetRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, staffauth.ErrCredentialNotFound),
		errors.Is(err, staffauth.ErrProfileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too many requests"
	case http.StatusNotFound:
		return "not found"
	default:
		return "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.retryAfter/time.Second)))
	}
	writeJSON(w, status, errorBody{Error: messageFor(status)})
}

type errorBody struct {
	Error string `json:"error"`
}
