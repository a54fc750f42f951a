package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim admin tokens must carry.
const RoleAdmin = "admin"

type adminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AdminOnly rejects requests without a valid admin bearer token. A nil or
// empty secret disables the check.
func AdminOnly(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "api.admin_auth"

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, r, nil, NewKind(op, ErrUnauthorized))
				return
			}
			var claims adminClaims
			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				writeError(w, r, nil, WrapKind(op, ErrUnauthorized, err))
				return
			}
			if claims.Role != RoleAdmin {
				writeError(w, r, nil, NewKind(op, ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueAdminToken signs an admin token for subject valid for ttl.
func IssueAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("issue admin token: empty secret")
	}
	now := time.Now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: RoleAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("issue admin token: %w", err)
	}
	return signed, nil
}
