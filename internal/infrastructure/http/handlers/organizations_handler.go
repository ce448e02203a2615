package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/organization"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
)

type OrganizationsHandler struct {
	orgs     *organization.Service
	validate *validator.Validate
	log      zerolog.Logger
}

func NewOrganizationsHandler(orgs *organization.Service, log zerolog.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{orgs: orgs, validate: validator.New(), log: log}
}

// List returns the organizations the caller belongs to.
func (h *OrganizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		writeErr(w, apperr.KindAuthentication, "authentication required")
		return
	}
	orgs, err := h.orgs.GetForUser(r.Context(), principal.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list organizations failed")
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgWithRoleJSON(o))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"organizations": out})
}

// Create registers a new organization owned by the caller.
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		writeErr(w, apperr.KindAuthentication, "authentication required")
		return
	}
	var body struct {
		Name    string  `json:"name" validate:"required,max=200"`
		Email   string  `json:"email" validate:"required,email,max=254"`
		TaxID   *string `json:"tax_id"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
		City    *string `json:"city"`
		Country string  `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	org, err := h.orgs.Create(r.Context(), principal.ID, organization.CreateInput{
		Name:    body.Name,
		Email:   body.Email,
		TaxID:   body.TaxID,
		Phone:   body.Phone,
		Address: body.Address,
		City:    body.City,
		Country: body.Country,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "organization.create", org.ID.String(), principal.ID.String(), true, "")
	writeSuccess(w, http.StatusCreated, map[string]any{"organization": orgJSON(org)})
}

// Get returns the organization resolved by the membership guard.
func (h *OrganizationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	org, err := h.orgs.GetByID(r.Context(), oc.OrganizationID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"organization": orgJSON(org),
		"user_role":    oc.Role,
	})
}

// GetStats returns the organization with quota usage and member count.
func (h *OrganizationsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	org, stats, err := h.orgs.GetWithStats(r.Context(), oc.OrganizationID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"organization": orgJSON(org),
		"stats": map[string]any{
			"quota_usage":  quotaUsageJSON(stats.QuotaUsage),
			"member_count": stats.MemberCount,
		},
	})
}

// Update patches the organization with the allow-listed fields.
func (h *OrganizationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	org, err := h.orgs.Update(r.Context(), oc.OrganizationID, fields)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"organization": orgJSON(org)})
}

// GetMembers lists the organization's active members.
func (h *OrganizationsHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	members, err := h.orgs.GetMembers(r.Context(), oc.OrganizationID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		out = append(out, membershipJSON(m))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"members": out})
}

// AddMember attaches a user to the organization with a role.
func (h *OrganizationsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var body struct {
		UserID string `json:"user_id" validate:"required,uuid"`
		Role   string `json:"role" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		writeErr(w, apperr.KindValidation, "invalid user id")
		return
	}
	m, err := h.orgs.AddMember(r.Context(), oc.OrganizationID, domain.NewUserID(userID), body.Role)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "organization.member_added", oc.OrganizationID.String(), body.UserID, true, "")
	writeSuccess(w, http.StatusCreated, map[string]any{"member": membershipJSON(m)})
}

// RemoveMember soft-deactivates a membership.
func (h *OrganizationsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeErr(w, apperr.KindValidation, "invalid user id")
		return
	}
	m, err := h.orgs.RemoveMember(r.Context(), oc.OrganizationID, domain.NewUserID(userID))
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "organization.member_removed", oc.OrganizationID.String(), userID.String(), true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"member": membershipJSON(m)})
}

// UpdateMemberRole changes a member's role.
func (h *OrganizationsHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeErr(w, apperr.KindValidation, "invalid user id")
		return
	}
	var body struct {
		Role string `json:"role" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	m, err := h.orgs.UpdateMemberRole(r.Context(), oc.OrganizationID, domain.NewUserID(userID), body.Role)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "organization.member_role_updated", oc.OrganizationID.String(), userID.String(), true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"member": membershipJSON(m)})
}
