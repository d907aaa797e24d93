package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/response"
)

// Authenticate requires a bearer token. A missing token is 401; a token
// that fails verification (bad signature, expired, revoked) is 403.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			response.Unauthorized(w, "token not provided")
			return
		}

		claims, err := auth.ValidateToken(r.Context(), token)
		if err != nil {
			logger.WithCtx(r.Context()).Debug("token rejected", "error", err)
			response.Forbidden(w, "invalid token")
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromCtx returns the authenticated user's ID.
func UserIDFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.Role, true
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
