package middleware

import (
	"net/http"
	"strings"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// QuotaGuard blocks requests that would exceed an organization's plan
// limits. Usage is read fresh on every request; on success the snapshot is
// left in context for the handler.
type QuotaGuard struct {
	quotas ports.QuotaReader
}

func NewQuotaGuard(quotas ports.QuotaReader) *QuotaGuard {
	return &QuotaGuard{quotas: quotas}
}

// Require blocks when the organization is at or over the ceiling for kind.
func (m *QuotaGuard) Require(kind domain.QuotaKind) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			usage, ok := m.readUsage(w, r)
			if !ok {
				return
			}
			if usage.Exceeded(kind) {
				RecordQuotaDenied(string(kind))
				writeErr(w, apperr.KindQuotaExceeded, quotaMessage(kind), quotaDetails(usage, kind, nil))
				return
			}
			ctx := WithQuotaUsage(r.Context(), usage)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUpload blocks when the declared upload would push storage past the
// ceiling. Filling storage exactly to the limit is allowed, unlike the
// generic check.
func (m *QuotaGuard) RequireUpload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		usage, ok := m.readUsage(w, r)
		if !ok {
			return
		}
		fileSizeMB := float64(r.ContentLength) / (1024 * 1024)
		if fileSizeMB < 0 {
			fileSizeMB = 0
		}
		if usage.ExceededByUpload(fileSizeMB) {
			RecordQuotaDenied(string(domain.QuotaStorage))
			details := quotaDetails(usage, domain.QuotaStorage, map[string]any{
				"upload_size_mb": fileSizeMB,
			})
			writeErrStatus(w, http.StatusRequestEntityTooLarge, apperr.KindQuotaExceeded,
				quotaMessage(domain.QuotaStorage), details)
			return
		}
		ctx := WithQuotaUsage(r.Context(), usage)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Warn never blocks; it sets an X-Quota-Warning header when any quota is at
// or above the warning threshold.
func (m *QuotaGuard) Warn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc := OrgFromContext(r.Context())
		if oc != nil {
			if usage, err := m.quotas.Usage(r.Context(), oc.OrganizationID); err == nil && usage != nil {
				if warnings := usage.Warnings(); len(warnings) > 0 {
					w.Header().Set("X-Quota-Warning", strings.Join(warnings, "; "))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *QuotaGuard) readUsage(w http.ResponseWriter, r *http.Request) (*domain.QuotaUsage, bool) {
	oc := OrgFromContext(r.Context())
	if oc == nil {
		writeErr(w, apperr.KindAuthorization, "organization scope not resolved", nil)
		return nil, false
	}
	usage, err := m.quotas.Usage(r.Context(), oc.OrganizationID)
	if err != nil {
		writeErr(w, apperr.KindInternal, "quota check failed", nil)
		return nil, false
	}
	if usage == nil {
		writeErr(w, apperr.KindInternal, "quota data not found", nil)
		return nil, false
	}
	return usage, true
}

func quotaDetails(usage *domain.QuotaUsage, kind domain.QuotaKind, extra map[string]any) map[string]any {
	details := map[string]any{
		"quota": usage.Info(kind),
		"subscription": map[string]any{
			"tier":   usage.SubscriptionTier,
			"status": usage.SubscriptionStatus,
		},
		"upgrade": "upgrade your subscription plan to raise this limit",
	}
	for k, v := range extra {
		details[k] = v
	}
	return details
}

func quotaMessage(kind domain.QuotaKind) string {
	switch kind {
	case domain.QuotaClients:
		return "client limit reached for your subscription plan"
	case domain.QuotaDocuments:
		return "monthly document limit reached for your subscription plan"
	case domain.QuotaStorage:
		return "storage limit reached for your subscription plan"
	}
	return "quota exceeded"
}
