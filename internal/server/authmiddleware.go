package server

import (
	"context"
	"net/http"

	"github.com/finwise/advisor/internal/auth"
)

// userContextKey is the context key for the verified user.
type userContextKey struct{}

// AuthMiddleware validates bearer tokens and injects the verified user into
// the request context. Requests without a valid credential are rejected with
// 401 before any further processing.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r)
			if err != nil {
				WriteJSONError(w, http.StatusUnauthorized, "authentication failed")
				return
			}

			user, err := authenticator.ValidateToken(token)
			if err != nil {
				WriteJSONError(w, http.StatusUnauthorized, "authentication failed")
				return
			}

			AddLogField(r.Context(), "user_id", user.ID)

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the verified user from context.
// Returns nil if no user is set.
func GetUser(ctx context.Context) *auth.User {
	if u, ok := ctx.Value(userContextKey{}).(*auth.User); ok {
		return u
	}
	return nil
}
