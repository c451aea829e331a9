package middleware

import (
	"net/http"
	"strings"

	"archie-core-attribution-layer/internal/domain"

	"github.com/rs/zerolog"
)

// UserIDHeader carries the authenticated user id set by the upstream auth gateway
const UserIDHeader = "X-User-ID"

// UserIDMiddleware resolves the authenticated user from UserIDHeader.
// Requests without it continue unauthenticated.
func UserIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects requests that carry no authenticated user
func RequireUser(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if domain.GetUserIDFromContext(r.Context()) == "" {
				logger.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Rejected unauthenticated request")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":{"kind":"Unauthenticated","message":"` + UserIDHeader + ` header is required"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
