package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexuscargo/backend/internal/auth"
)

type contextKey string

const (
	tenantKey contextKey = "tenant_id"
	userKey   contextKey = "user_id"
	roleKey   contextKey = "role"
)

// TokenVerifier validates access tokens; satisfied by the auth service.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey).(string)
	return v
}

func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

func RoleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}

// WithTenant injects a tenant into the context. Used by tests and workers.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// Tenant resolves the caller's tenant for every request.
//
// 1. A Bearer access token carries the tenant in its claims.
// 2. The configured tenant header (dev and trusted internal traffic) is
//    the fallback; in production this sits behind the gateway.
//
// Requests with neither are rejected.
func Tenant(verifier TokenVerifier, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "X-Tenant-Id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") && verifier != nil {
				token := strings.TrimPrefix(authHeader, "Bearer ")
				claims, err := verifier.VerifyAccess(token)
				if err != nil {
					http.Error(w, "invalid access token", http.StatusUnauthorized)
					return
				}
				ctx = context.WithValue(ctx, tenantKey, claims.TenantID)
				ctx = context.WithValue(ctx, userKey, claims.Subject)
				ctx = context.WithValue(ctx, roleKey, claims.Role)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if tenantID := r.Header.Get(headerName); tenantID != "" {
				ctx = context.WithValue(ctx, tenantKey, tenantID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			http.Error(w, "missing tenant context (access token or "+headerName+")", http.StatusUnauthorized)
		})
	}
}
