package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"usermgmt/internal/httpjson"
)

type contextKey string

const principalContextKey contextKey = "usermgmt_principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func JWTMiddleware(svc *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}
			principal, err := svc.Resolve(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, ErrTokenExpired):
				httpjson.Error(w, http.StatusUnauthorized, "Session expired")
				return
			case errors.Is(err, ErrInvalidToken):
				httpjson.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			case errors.Is(err, ErrInactive):
				httpjson.Error(w, http.StatusUnauthorized, "User not active")
				return
			default:
				logger.Error("resolve token", "err", err)
				httpjson.Error(w, http.StatusInternalServerError, "Internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin must run inside JWTMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpjson.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}
		if !p.IsAdmin() {
			httpjson.Error(w, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
