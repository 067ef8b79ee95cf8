package middleware

import (
	"context"
	"net/http"

	"storefront-order-service/internal/auth"
	"storefront-order-service/pkg/response"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := authSvc.Verify(token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles must run after RequireAuth.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
				return
			}
			if !allowed[claims.Role] {
				response.Error(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
