package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// MembershipGuard resolves the target organization of a request and checks
// that the caller holds an active membership in it. On success the
// organization scope is set in context (see OrgFromContext).
type MembershipGuard struct {
	members ports.MembershipRepository
}

func NewMembershipGuard(members ports.MembershipRepository) *MembershipGuard {
	return &MembershipGuard{members: members}
}

func (m *MembershipGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			writeErr(w, apperr.KindAuthentication, "authentication required", nil)
			return
		}

		orgID, ok := resolveOrganizationID(r)
		if !ok {
			writeErr(w, apperr.KindValidation, "organization id is required", nil)
			return
		}

		if principal.RoleHint == domain.RoleSuperAdmin {
			ctx := WithOrg(r.Context(), &OrgContext{OrganizationID: orgID, Role: domain.RoleSuperAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		membership, err := m.members.Get(r.Context(), orgID, principal.ID)
		if err != nil {
			writeErr(w, apperr.KindInternal, "internal server error", nil)
			return
		}
		if membership == nil {
			writeErr(w, apperr.KindAuthorization, "you are not a member of this organization", nil)
			return
		}
		if !membership.IsActive {
			writeErr(w, apperr.KindAuthorization, "your membership in this organization is inactive", nil)
			return
		}

		ctx := WithOrg(r.Context(), &OrgContext{OrganizationID: orgID, Role: membership.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveOrganizationID finds the target organization, in priority order:
// the organizationId path param, the id path param, the organization_id
// query param, then an organization_id field in a JSON body. The body is
// re-buffered so the handler can still read it.
func resolveOrganizationID(r *http.Request) (domain.OrganizationID, bool) {
	candidates := []string{
		chi.URLParam(r, "organizationId"),
		chi.URLParam(r, "id"),
		r.URL.Query().Get("organization_id"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if id, err := uuid.Parse(c); err == nil {
			return domain.NewOrganizationID(id), true
		}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Body != nil && mediaType == "application/json" {
		raw, err := io.ReadAll(r.Body)
		if err == nil {
			r.Body = io.NopCloser(bytes.NewReader(raw))
			var body struct {
				OrganizationID string `json:"organization_id"`
			}
			if json.Unmarshal(raw, &body) == nil && body.OrganizationID != "" {
				if id, err := uuid.Parse(body.OrganizationID); err == nil {
					return domain.NewOrganizationID(id), true
				}
			}
		}
	}
	return domain.OrganizationID{}, false
}
