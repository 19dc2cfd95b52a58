// Package middleware provides HTTP middleware for authentication, request
// identification, and rate limiting.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// Auth validates the Bearer token and stores the caller's identity in the
// request context. Tokens must carry both a subject and a tenant_id claim;
// a token without a tenant is rejected here, before any handler runs.
func Auth(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "provide a Bearer token")
				return
			}

			identity, err := parseToken(strings.TrimPrefix(auth, "Bearer "), jwtSecret)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			ctx := domain.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(tokenStr string, secret []byte) (domain.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Identity{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, fmt.Errorf("unsupported claim type %T", token.Claims)
	}

	sub, _ := claims["sub"].(string)
	tenant, _ := claims["tenant_id"].(string)
	if sub == "" {
		return domain.Identity{}, fmt.Errorf("token has no subject")
	}
	if tenant == "" {
		return domain.Identity{}, fmt.Errorf("token has no tenant_id")
	}

	return domain.Identity{UserID: sub, TenantID: tenant}, nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    401,
		"message": "unauthorized: " + msg,
	})
}

// IssueToken signs a short-form HS256 token for the given identity. Used by
// the CLI and tests; the server only verifies.
func IssueToken(secret []byte, userID, tenantID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       userID,
		"tenant_id": tenantID,
	})
	return token.SignedString(secret)
}
