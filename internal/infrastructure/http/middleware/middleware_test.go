package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

type fakeVerifier struct {
	principal *domain.Principal
}

func (v *fakeVerifier) Verify(token string) (*domain.Principal, error) {
	if v.principal == nil {
		return nil, apperr.Authentication("invalid token")
	}
	return v.principal, nil
}

type fakeMembers struct {
	membership *domain.Membership
}

func (r *fakeMembers) Get(context.Context, domain.OrganizationID, domain.UserID) (*domain.Membership, error) {
	return r.membership, nil
}
func (r *fakeMembers) List(context.Context, domain.OrganizationID) ([]*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMembers) CountActive(context.Context, domain.OrganizationID) (int, error) { return 0, nil }
func (r *fakeMembers) CountActiveAdmins(context.Context, domain.OrganizationID) (int, error) {
	return 0, nil
}
func (r *fakeMembers) Create(context.Context, *domain.Membership) error { return nil }
func (r *fakeMembers) Reactivate(context.Context, domain.OrganizationID, domain.UserID, string) (*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMembers) Deactivate(context.Context, domain.OrganizationID, domain.UserID) (*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMembers) UpdateRole(context.Context, domain.OrganizationID, domain.UserID, string) (*domain.Membership, error) {
	return nil, nil
}

type fakeQuotas struct {
	usage *domain.QuotaUsage
}

func (r *fakeQuotas) Usage(context.Context, domain.OrganizationID) (*domain.QuotaUsage, error) {
	return r.usage, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testPrincipal(role string) *domain.Principal {
	return &domain.Principal{ID: domain.NewUserID(uuid.New()), Email: "ana@example.com", RoleHint: role}
}

func TestAuthGuardRequire(t *testing.T) {
	guard := NewAuthGuard(&fakeVerifier{principal: testPrincipal("")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	guard.Require(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing header")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec = httptest.NewRecorder()
	var got *domain.Principal
	guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
		assert.Equal(t, "sometoken", TokenFromContext(r.Context()))
	})).ServeHTTP(rec, req)
	require.NotNil(t, got)
}

func TestAuthGuardRejectsInvalidToken(t *testing.T) {
	guard := NewAuthGuard(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	guard.Require(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthGuardOptionalNeverBlocks(t *testing.T) {
	principal := testPrincipal("")
	guard := NewAuthGuard(&fakeVerifier{principal: principal})

	cases := map[string]string{
		"missing header":   "",
		"malformed header": "Token abc",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		guard.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Nil(t, PrincipalFromContext(r.Context()), name)
		})).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, name)
	}

	// Invalid token passes through without a principal.
	guard = NewAuthGuard(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	guard.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, PrincipalFromContext(r.Context()))
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Valid token attaches the principal.
	guard = NewAuthGuard(&fakeVerifier{principal: principal})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	guard.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, principal, PrincipalFromContext(r.Context()))
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func withPathParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMembershipGuardPathParam(t *testing.T) {
	orgID := uuid.New()
	guard := NewMembershipGuard(&fakeMembers{membership: &domain.Membership{Role: domain.RoleAccountant, IsActive: true}})

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+orgID.String(), nil)
	req = withPathParam(req, "id", orgID.String())
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal("")))

	rec := httptest.NewRecorder()
	guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc := OrgFromContext(r.Context())
		require.NotNil(t, oc)
		assert.Equal(t, orgID, oc.OrganizationID.UUID)
		assert.Equal(t, domain.RoleAccountant, oc.Role)
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMembershipGuardBodyFallbackRebuffers(t *testing.T) {
	orgID := uuid.New()
	guard := NewMembershipGuard(&fakeMembers{membership: &domain.Membership{Role: domain.RoleOrgAdmin, IsActive: true}})

	payload := `{"organization_id":"` + orgID.String() + `","name":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal("")))

	rec := httptest.NewRecorder()
	guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, string(raw), "body must be readable again downstream")
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMembershipGuardBodyFallbackAcceptsCharsetParameter(t *testing.T) {
	orgID := uuid.New()
	guard := NewMembershipGuard(&fakeMembers{membership: &domain.Membership{Role: domain.RoleOrgAdmin, IsActive: true}})

	payload := `{"organization_id":"` + orgID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal("")))

	rec := httptest.NewRecorder()
	guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc := OrgFromContext(r.Context())
		require.NotNil(t, oc)
		assert.Equal(t, orgID, oc.OrganizationID.UUID)
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMembershipGuardRejectsInactive(t *testing.T) {
	orgID := uuid.New()
	guard := NewMembershipGuard(&fakeMembers{membership: &domain.Membership{Role: domain.RoleViewer, IsActive: false}})

	req := httptest.NewRequest(http.MethodGet, "/x?organization_id="+orgID.String(), nil)
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal("")))
	rec := httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMembershipGuardSuperAdminBypass(t *testing.T) {
	orgID := uuid.New()
	guard := NewMembershipGuard(&fakeMembers{membership: nil})

	req := httptest.NewRequest(http.MethodGet, "/x?organization_id="+orgID.String(), nil)
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal(domain.RoleSuperAdmin)))
	rec := httptest.NewRecorder()
	guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc := OrgFromContext(r.Context())
		require.NotNil(t, oc)
		assert.Equal(t, domain.RoleSuperAdmin, oc.Role)
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMembershipGuardMissingOrgID(t *testing.T) {
	guard := NewMembershipGuard(&fakeMembers{})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(WithPrincipal(req.Context(), testPrincipal("")))
	rec := httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func orgScopedRequest(role string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return req.WithContext(WithOrg(req.Context(), &OrgContext{
		OrganizationID: domain.NewOrganizationID(uuid.New()),
		Role:           role,
	}))
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(domain.RoleOrgAdmin, domain.RoleAccountant)

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleAccountant))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleViewer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	details := body["details"].(map[string]any)
	assert.Equal(t, domain.RoleViewer, details["current"])

	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleSuperAdmin))
	assert.Equal(t, http.StatusOK, rec.Code, "super_admin passes every gate")
}

func TestQuotaGuardAtLimitBlocks(t *testing.T) {
	guard := NewQuotaGuard(&fakeQuotas{usage: &domain.QuotaUsage{CurrentClients: 10, MaxClients: 10}})
	rec := httptest.NewRecorder()
	guard.Require(domain.QuotaClients)(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleOrgAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body["error"])
}

func TestQuotaGuardBelowLimitPassesSnapshot(t *testing.T) {
	guard := NewQuotaGuard(&fakeQuotas{usage: &domain.QuotaUsage{CurrentClients: 9, MaxClients: 10}})
	rec := httptest.NewRecorder()
	guard.Require(domain.QuotaClients)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, QuotaUsageFromContext(r.Context()))
	})).ServeHTTP(rec, orgScopedRequest(domain.RoleOrgAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuotaGuardMissingUsageIsInternal(t *testing.T) {
	guard := NewQuotaGuard(&fakeQuotas{usage: nil})
	rec := httptest.NewRecorder()
	guard.Require(domain.QuotaClients)(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleOrgAdmin))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota data not found", body["message"])
}

func TestQuotaGuardUploadExactFillAllowed(t *testing.T) {
	guard := NewQuotaGuard(&fakeQuotas{usage: &domain.QuotaUsage{CurrentStorageMB: 90, MaxStorageMB: 100}})

	req := orgScopedRequest(domain.RoleOrgAdmin)
	req.Body = io.NopCloser(bytes.NewReader(make([]byte, 10*1024*1024)))
	req.ContentLength = 10 * 1024 * 1024
	rec := httptest.NewRecorder()
	guard.RequireUpload(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "exact fill is allowed")

	req = orgScopedRequest(domain.RoleOrgAdmin)
	req.ContentLength = 11 * 1024 * 1024
	rec = httptest.NewRecorder()
	guard.RequireUpload(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestQuotaGuardWarnHeader(t *testing.T) {
	guard := NewQuotaGuard(&fakeQuotas{usage: &domain.QuotaUsage{CurrentClients: 8, MaxClients: 10}})
	rec := httptest.NewRecorder()
	guard.Warn(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleOrgAdmin))
	assert.Equal(t, "Clients: 8/10", rec.Header().Get("X-Quota-Warning"))

	guard = NewQuotaGuard(&fakeQuotas{usage: &domain.QuotaUsage{CurrentClients: 7, MaxClients: 10}})
	rec = httptest.NewRecorder()
	guard.Warn(okHandler()).ServeHTTP(rec, orgScopedRequest(domain.RoleOrgAdmin))
	assert.Empty(t, rec.Header().Get("X-Quota-Warning"))
}
