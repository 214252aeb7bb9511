package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

type ctxKey int

const adminClaimsKey ctxKey = iota

// AdminFromContext returns the claims AdminAuth stored on the request.
func AdminFromContext(ctx context.Context) (*services.AdminClaims, bool) {
	c, ok := ctx.Value(adminClaimsKey).(*services.AdminClaims)
	return c, ok
}

// WithAdmin stores claims on ctx. Used by AdminAuth and by handler tests.
func WithAdmin(ctx context.Context, c *services.AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, c)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// WebSocket clients cannot set headers, so GET requests may pass ?token=.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

// AdminAuth rejects requests without a valid, unrevoked admin token.
func AdminAuth(sessions *services.AdminSessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			claims, err := sessions.Validate(r.Context(), token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), claims)))
		})
	}
}

// RequirePermission checks the authenticated role against rbac. Use after AdminAuth.
func RequirePermission(rbac *services.RBAC, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := AdminFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			if !rbac.IsGranted(claims.Role, permission) {
				deny(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// destructive admin operations: 6/min per admin, burst 3
var destructiveLimiters = newLimiterSet(rate.Limit(0.1), 3)

// DestructiveRateLimit throttles bulk deletes and restores per admin. Use after AdminAuth.
func DestructiveRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "anonymous"
		if c, ok := AdminFromContext(r.Context()); ok {
			key = c.Subject
		}
		if !destructiveLimiters.allow(key) {
			tooMany(w, "Too many destructive operations. Please wait a moment.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
