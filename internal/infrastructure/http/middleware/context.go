package middleware

import (
	"context"

	"github.com/petar554/fakturo/internal/domain"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	tokenContextKey     contextKey = "token"
	orgContextKey       contextKey = "org"
	quotaContextKey     contextKey = "quota"
)

// OrgContext is the resolved tenant scope of a request: which organization
// it targets and the caller's role inside it.
type OrgContext struct {
	OrganizationID domain.OrganizationID
	Role           string
}

// WithPrincipal injects the authenticated principal into the context.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalContextKey).(*domain.Principal)
	return p
}

// WithToken injects the raw bearer token into the context. Handlers that
// call the identity provider on the user's behalf need it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the raw bearer token, or "".
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenContextKey).(string)
	return t
}

// WithOrg injects the resolved organization scope into the context.
func WithOrg(ctx context.Context, oc *OrgContext) context.Context {
	return context.WithValue(ctx, orgContextKey, oc)
}

// OrgFromContext returns the resolved organization scope, or nil.
func OrgFromContext(ctx context.Context) *OrgContext {
	oc, _ := ctx.Value(orgContextKey).(*OrgContext)
	return oc
}

// WithQuotaUsage injects the usage snapshot taken by a quota guard so the
// handler can reuse it without a second read.
func WithQuotaUsage(ctx context.Context, u *domain.QuotaUsage) context.Context {
	return context.WithValue(ctx, quotaContextKey, u)
}

// QuotaUsageFromContext returns the usage snapshot, or nil.
func QuotaUsageFromContext(ctx context.Context) *domain.QuotaUsage {
	u, _ := ctx.Value(quotaContextKey).(*domain.QuotaUsage)
	return u
}
