package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"slices"

	"idscan/internal/ratelimit"
	"idscan/internal/session"
)

const userKey contextKey = "session_user"

// User returns the session user attached by Session.
func User(ctx context.Context) (session.User, bool) {
	u, ok := ctx.Value(userKey).(session.User)
	return u, ok
}

// WithUser attaches u to ctx.
func WithUser(ctx context.Context, u session.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Session attaches the cookie's user when the cookie verifies. Requests
// without a valid session pass through anonymously.
func Session(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(session.CookieName); err == nil {
				if u, err := m.Parse(c.Value); err == nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects anonymous requests with 401 and other roles with 403.
// With no roles any signed-in user passes.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := User(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, u.Role) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit caps requests per client IP. A limiter error lets the request
// through.
func RateLimit(l ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("ratelimit.unavailable", "req_id", RequestID(r.Context()), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				logger.Info("ratelimit.rejected", "req_id", RequestID(r.Context()), "client", key)
				writeError(w, http.StatusTooManyRequests, "Too many extraction requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
