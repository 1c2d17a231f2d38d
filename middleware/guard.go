package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// Verifier verifies signed tokens. [*jwt.Manager] implements it.
type Verifier interface {
	ParseAccess(token string) (*jwt.TokenClaims, error)
	ParseRefresh(token string) (*jwt.TokenClaims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.TokenClaims)
	return claims, ok
}

// RequireAccess rejects requests without a valid access token.
func RequireAccess(v Verifier) func(http.Handler) http.Handler {
	return Guard(v, jwt.KindAccess)
}

// RequireRefresh rejects requests without a valid refresh token.
func RequireRefresh(v Verifier) func(http.Handler) http.Handler {
	return Guard(v, jwt.KindRefresh)
}

// Guard verifies the bearer token as kind and answers 401 with a JSON
// {"error": ...} body when verification fails.
func Guard(v Verifier, kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w, "unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			var (
				claims *jwt.TokenClaims
				err    error
			)
			if kind == jwt.KindRefresh {
				claims, err = v.ParseRefresh(token)
			} else {
				claims, err = v.ParseAccess(token)
			}
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
