package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adube/placeshare/internal/auth"
	"github.com/adube/placeshare/internal/httperr"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id attached by RequireAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// RequireAuth validates the bearer token and injects the user id into the
// request context. All failure modes — missing header, malformed scheme,
// bad signature, expired token — produce the same 401 body so the response
// does not reveal which check failed. CORS preflights pass through
// unauthenticated.
func RequireAuth(tokens *auth.TokenService, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				httperr.Write(w, log, httperr.Unauthorized("Authorization failed"))
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				httperr.Write(w, log, httperr.Unauthorized("Authorization failed"))
				return
			}

			// Only the user id is trusted downstream; handlers re-load the
			// user when they need anything more.
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying the given user id. Test helper
// for exercising handlers behind the gate.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
