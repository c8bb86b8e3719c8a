// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/identd/mongoauth/pkg/api/auth"
)

// claimsContextKey is a private type for the claims context key.
type claimsContextKey struct{}

// GetClaimsFromContext retrieves validated JWT claims from the request
// context, or nil if the request was not authenticated.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims
}

// JWTAuth returns middleware that validates the Bearer token on each
// request and stores the claims in the request context. Requests
// without a valid access token are rejected with 401.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Authorization header must use Bearer scheme")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects requests whose claims do
// not include admin group membership. Must run after JWTAuth.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireGroup(auth.AdminGroup)
}

// RequireGroup returns middleware that rejects requests unless the
// claims include at least one of the given groups.
func RequireGroup(groups ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}

			for _, g := range groups {
				if claims.HasGroup(g) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeProblem(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
		})
	}
}

// writeProblem writes an RFC 7807 problem response. Duplicated from the
// handlers package to avoid an import cycle.
func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "about:blank",
		"title":  title,
		"status": status,
		"detail": detail,
	})
}
