package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/pkordes/trip-planner/backend/internal/auth"
)

// Authenticator validates a raw bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type claimsKey struct{}

type userHolderKey struct{}

// userHolder lets RequireAuth report the user to the request logger, which
// wraps it from the outside.
type userHolder struct{ email string }

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey{}, h)
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by RequireAuth, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// RequireAuth rejects requests without a valid token with 401. The token is
// read from the Authorization header, or from the access_token query
// parameter for clients that cannot set headers (browser WebSockets).
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}

			claims, err := a.Authenticate(r.Context(), token)
			if err != nil {
				msg := "invalid or expired token"
				if errors.Is(err, auth.ErrMissingToken) {
					msg = "authentication required"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="trip-planner"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}
			if h, ok := r.Context().Value(userHolderKey{}).(*userHolder); ok {
				h.email = claims.Email
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
