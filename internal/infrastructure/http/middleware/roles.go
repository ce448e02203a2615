package middleware

import (
	"net/http"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// RequireRole gates a route on the caller's role within the resolved
// organization. Must run after the membership guard. super_admin passes
// every gate.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			oc := OrgFromContext(r.Context())
			if oc == nil {
				writeErr(w, apperr.KindAuthorization, "membership must be verified first", nil)
				return
			}
			if oc.Role != domain.RoleSuperAdmin && !allowed[oc.Role] {
				writeErr(w, apperr.KindAuthorization, "insufficient permissions", map[string]any{
					"required": roles,
					"current":  oc.Role,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
