package handlers

import (
	"github.com/petar554/fakturo/internal/domain"
)

func orgJSON(o *domain.Organization) map[string]any {
	return map[string]any{
		"id":                  o.ID.String(),
		"name":                o.Name,
		"email":               o.Email,
		"tax_id":              o.TaxID,
		"phone":               o.Phone,
		"address":             o.Address,
		"city":                o.City,
		"country":             o.Country,
		"subscription_tier":   o.SubscriptionTier,
		"subscription_status": o.SubscriptionStatus,
		"trial_ends_at":       o.TrialEndsAt,
		"settings":            o.Settings,
		"created_by":          o.CreatedBy.String(),
		"created_at":          o.CreatedAt,
		"updated_at":          o.UpdatedAt,
	}
}

func orgWithRoleJSON(o *domain.OrganizationWithRole) map[string]any {
	m := orgJSON(&o.Organization)
	m["user_role"] = o.UserRole
	m["joined_at"] = o.JoinedAt
	return m
}

func membershipJSON(m *domain.Membership) map[string]any {
	return map[string]any{
		"organization_id":  m.OrganizationID.String(),
		"user_id":          m.UserID.String(),
		"role":             m.Role,
		"is_active":        m.IsActive,
		"joined_at":        m.JoinedAt,
		"last_activity_at": m.LastActivityAt,
	}
}

func clientJSON(c *domain.Client) map[string]any {
	var accountant *string
	if c.AssignedAccountantID != nil {
		s := c.AssignedAccountantID.String()
		accountant = &s
	}
	return map[string]any{
		"id":                     c.ID.String(),
		"organization_id":        c.OrganizationID.String(),
		"name":                   c.Name,
		"tax_id":                 c.TaxID,
		"alternative_names":      c.AlternativeNames,
		"email":                  c.Email,
		"phone":                  c.Phone,
		"address":                c.Address,
		"city":                   c.City,
		"industry":               c.Industry,
		"company_size":           c.CompanySize,
		"assigned_accountant_id": accountant,
		"portal_enabled":         c.PortalEnabled,
		"is_active":              c.IsActive,
		"created_by":             c.CreatedBy.String(),
		"created_at":             c.CreatedAt,
		"updated_at":             c.UpdatedAt,
	}
}

func clientMatchJSON(m *domain.ClientMatch) map[string]any {
	out := clientJSON(&m.Client)
	out["match_type"] = m.MatchType
	out["confidence"] = m.Confidence
	return out
}

func documentJSON(d *domain.Document) map[string]any {
	var clientID *string
	if d.ClientID != nil {
		s := d.ClientID.String()
		clientID = &s
	}
	var createdBy *string
	if d.CreatedBy != nil {
		s := d.CreatedBy.String()
		createdBy = &s
	}
	return map[string]any{
		"id":                d.ID.String(),
		"organization_id":   d.OrganizationID.String(),
		"client_id":         clientID,
		"filename":          d.Filename,
		"original_filename": d.OriginalFilename,
		"document_type":     d.DocumentType,
		"document_status":   d.DocumentStatus,
		"file_size":         d.FileSize,
		"mime_type":         d.MimeType,
		"source":            d.Source,
		"created_by":        createdBy,
		"created_at":        d.CreatedAt,
		"updated_at":        d.UpdatedAt,
	}
}

func quotaUsageJSON(u *domain.QuotaUsage) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"clients":             u.Info(domain.QuotaClients),
		"documents":           u.Info(domain.QuotaDocuments),
		"storage":             u.Info(domain.QuotaStorage),
		"subscription_tier":   u.SubscriptionTier,
		"subscription_status": u.SubscriptionStatus,
	}
}
