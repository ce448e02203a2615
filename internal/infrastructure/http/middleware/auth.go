package middleware

import (
	"net/http"
	"strings"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// AuthGuard verifies the bearer token locally and sets the principal and
// raw token in context (see PrincipalFromContext).
type AuthGuard struct {
	verifier ports.TokenVerifier
}

func NewAuthGuard(verifier ports.TokenVerifier) *AuthGuard {
	return &AuthGuard{verifier: verifier}
}

// Require rejects requests without a valid bearer token.
func (m *AuthGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErr(w, apperr.KindAuthentication, "missing or invalid authorization header", nil)
			return
		}
		principal, err := m.verifier.Verify(token)
		if err != nil {
			writeErr(w, apperr.KindAuthentication, "invalid or expired token", nil)
			return
		}
		ctx := WithPrincipal(r.Context(), principal)
		ctx = WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the principal when a valid token is present and passes
// through otherwise.
func (m *AuthGuard) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token != "" {
			if principal, err := m.verifier.Verify(token); err == nil {
				ctx := WithPrincipal(r.Context(), principal)
				ctx = WithToken(ctx, token)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
