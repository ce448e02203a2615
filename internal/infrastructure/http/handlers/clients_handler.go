package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/client"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
)

type ClientsHandler struct {
	clients  *client.Service
	validate *validator.Validate
	log      zerolog.Logger
}

func NewClientsHandler(clients *client.Service, log zerolog.Logger) *ClientsHandler {
	return &ClientsHandler{clients: clients, validate: validator.New(), log: log}
}

// Create registers a client for the resolved organization.
func (h *ClientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	var body struct {
		Name                 string   `json:"name" validate:"required,max=200"`
		TaxID                string   `json:"tax_id" validate:"required"`
		AlternativeNames     []string `json:"alternative_names"`
		Email                *string  `json:"email"`
		Phone                *string  `json:"phone"`
		Address              *string  `json:"address"`
		City                 *string  `json:"city"`
		Industry             *string  `json:"industry"`
		CompanySize          *string  `json:"company_size"`
		AssignedAccountantID *string  `json:"assigned_accountant_id"`
		PortalEnabled        bool     `json:"portal_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	var accountantID *domain.UserID
	if body.AssignedAccountantID != nil && *body.AssignedAccountantID != "" {
		id, err := uuid.Parse(*body.AssignedAccountantID)
		if err != nil {
			writeErr(w, apperr.KindValidation, "invalid assigned accountant id")
			return
		}
		uid := domain.NewUserID(id)
		accountantID = &uid
	}
	c, err := h.clients.Create(r.Context(), oc.OrganizationID, principal.ID, client.CreateInput{
		Name:                 body.Name,
		TaxID:                body.TaxID,
		AlternativeNames:     body.AlternativeNames,
		Email:                body.Email,
		Phone:                body.Phone,
		Address:              body.Address,
		City:                 body.City,
		Industry:             body.Industry,
		CompanySize:          body.CompanySize,
		AssignedAccountantID: accountantID,
		PortalEnabled:        body.PortalEnabled,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "client.create", oc.OrganizationID.String(), principal.ID.String(), true, "")
	writeSuccess(w, http.StatusCreated, map[string]any{"client": clientJSON(c)})
}

// List returns one page of the organization's clients.
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	f := clientFilterFromQuery(r)
	page, err := h.clients.List(r.Context(), oc.OrganizationID, f)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(page.Clients))
	for _, c := range page.Clients {
		out = append(out, clientJSON(c))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"clients": out,
		"pagination": map[string]any{
			"total": page.Count,
			"page":  page.Page,
			"limit": page.Limit,
		},
	})
}

// Get returns one client.
func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	c, err := h.clients.GetByID(r.Context(), oc.OrganizationID, id)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"client": clientJSON(c)})
}

// GetStats returns a client with its document aggregates.
func (h *ClientsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	c, stats, err := h.clients.GetWithStats(r.Context(), oc.OrganizationID, id)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"client": clientJSON(c),
		"stats":  stats,
	})
}

// Update patches a client with the allow-listed fields.
func (h *ClientsHandler) Update(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	c, err := h.clients.Update(r.Context(), oc.OrganizationID, id, fields)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"client": clientJSON(c)})
}

// Delete soft-deactivates a client.
func (h *ClientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	c, err := h.clients.Delete(r.Context(), oc.OrganizationID, id)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "client.deactivate", oc.OrganizationID.String(), "", true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"client": clientJSON(c)})
}

// Search matches clients by exact tax ID with a fuzzy-name fallback.
func (h *ClientsHandler) Search(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var body struct {
		TaxID string `json:"tax_id"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if body.TaxID == "" && body.Name == "" {
		writeErr(w, apperr.KindValidation, "tax_id or name is required")
		return
	}
	matches, err := h.clients.Search(r.Context(), oc.OrganizationID, body.TaxID, body.Name)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, clientMatchJSON(m))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"matches": out})
}

// FindByName runs the fuzzy name search at an optional caller threshold.
func (h *ClientsHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var body struct {
		Name      string  `json:"name" validate:"required"`
		Threshold float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	matches, err := h.clients.FindByName(r.Context(), oc.OrganizationID, body.Name, body.Threshold)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, clientMatchJSON(m))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"matches": out})
}

// FindByTaxID looks up a single client by exact tax ID.
func (h *ClientsHandler) FindByTaxID(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	match, err := h.clients.FindByTaxID(r.Context(), oc.OrganizationID, chi.URLParam(r, "taxId"))
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if match == nil {
		writeErr(w, apperr.KindNotFound, "client not found")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"client": clientMatchJSON(match)})
}

// Documents lists a client's documents.
func (h *ClientsHandler) Documents(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	f := documentFilterFromQuery(r)
	docs, err := h.clients.GetDocuments(r.Context(), oc.OrganizationID, id, f)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentJSON(d))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"documents": out})
}

// AssignAccountant sets the client's responsible accountant.
func (h *ClientsHandler) AssignAccountant(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}
	var body struct {
		AccountantID string `json:"accountant_id" validate:"required,uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	accountantID, err := uuid.Parse(body.AccountantID)
	if err != nil {
		writeErr(w, apperr.KindValidation, "invalid accountant id")
		return
	}
	c, err := h.clients.AssignAccountant(r.Context(), oc.OrganizationID, id, domain.NewUserID(accountantID))
	if err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "client.assign_accountant", oc.OrganizationID.String(), body.AccountantID, true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"client": clientJSON(c)})
}

func clientIDFromPath(w http.ResponseWriter, r *http.Request) (domain.ClientID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "clientId"))
	if err != nil {
		writeErr(w, apperr.KindValidation, "invalid client id")
		return domain.ClientID{}, false
	}
	return domain.NewClientID(id), true
}

func clientFilterFromQuery(r *http.Request) domain.ClientFilter {
	q := r.URL.Query()
	f := domain.ClientFilter{
		City:           q.Get("city"),
		Industry:       q.Get("industry"),
		Search:         q.Get("search"),
		OrderBy:        q.Get("order_by"),
		OrderDirection: q.Get("order_direction"),
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}
	if v := q.Get("assigned_accountant_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			uid := domain.NewUserID(id)
			f.AssignedAccountantID = &uid
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 1 {
		limit := f.Limit
		if limit <= 0 {
			limit = 50
		}
		f.Offset = (v - 1) * limit
	}
	return f
}

func documentFilterFromQuery(r *http.Request) domain.DocumentFilter {
	q := r.URL.Query()
	f := domain.DocumentFilter{
		DocumentType:   q.Get("document_type"),
		DocumentStatus: q.Get("document_status"),
	}
	if v := q.Get("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := q.Get("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DateTo = &t
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	return f
}
