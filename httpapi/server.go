package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	staffauth "github.com/hrplane/staffauth"
	"github.com/hrplane/staffauth/middleware"
)

// Server defines a public type used by staffauth APIs.
//
// Server instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Server struct {
	engine     *staffauth.Engine
	retryAfter time.Duration
}

// NewServer describes the newserver operation and its observable behavior.
//
// NewServer may return an error when input validation, dependency calls, or security checks fail.
// NewServer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewServer(engine *staffauth.Engine, retryAfter time.Duration) *Server {
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	return &Server{
		engine:     engine,
		retryAfter: retryAfter,
	}
}

// Routes describes the routes operation and its observable behavior.
//
// Routes may return an error when input validation, dependency calls, or security checks fail.
// Routes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh-token", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /auth/verify-email", s.handleVerifyEmail)

	authed := middleware.Authenticate(s.engine)
	mux.Handle("POST /auth/logout-all", authed(http.HandlerFunc(s.handleLogoutAll)))
	mux.Handle("POST /auth/change-password", authed(http.HandlerFunc(s.handleChangePassword)))
	mux.Handle("GET /auth/me", authed(http.HandlerFunc(s.handleMe)))

	return withClientIP(mux)
}

// withClientIP lifts transport metadata into the request context so the
// engine's throttles and ring records see it without knowing about HTTP.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		ctx := staffauth.WithClientIP(r.Context(), host)
		if ua := r.Header.Get("User-Agent"); ua != "" {
			ctx = staffauth.WithDeviceInfo(ctx, ua)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request"})
		return false
	}
	return true
}
