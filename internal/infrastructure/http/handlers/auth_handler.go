package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/organization"
	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain/apperr"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
)

type AuthHandler struct {
	identity ports.IdentityProvider
	orgs     *organization.Service
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(identity ports.IdentityProvider, orgs *organization.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		orgs:     orgs,
		validate: validator.New(),
		log:      log,
	}
}

// Register creates the account with the identity provider and then the
// caller's organization. The account survives an organization failure; the
// client is told to retry organization setup.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email            string  `json:"email" validate:"required,email,max=254"`
		Password         string  `json:"password" validate:"required,min=8,max=128"`
		FullName         string  `json:"full_name" validate:"max=200"`
		OrganizationName string  `json:"organization_name" validate:"required,max=200"`
		TaxID            *string `json:"tax_id"`
		Phone            *string `json:"phone"`
		Address          *string `json:"address"`
		City             *string `json:"city"`
		Country          string  `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}

	user, session, err := h.identity.SignUp(r.Context(), body.Email, body.Password, body.FullName)
	if err != nil {
		AuditLog(h.log, r, "auth.register", "", "", false, err.Error())
		writeAppErr(w, err)
		return
	}

	org, err := h.orgs.Create(r.Context(), user.ID, organization.CreateInput{
		Name:    body.OrganizationName,
		Email:   body.Email,
		TaxID:   body.TaxID,
		Phone:   body.Phone,
		Address: body.Address,
		City:    body.City,
		Country: body.Country,
	})
	if err != nil {
		AuditLog(h.log, r, "auth.register", "", user.ID.String(), false, err.Error())
		writeAppErr(w, err)
		return
	}

	AuditLog(h.log, r, "auth.register", org.ID.String(), user.ID.String(), true, "")
	writeSuccess(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":         user.ID.String(),
			"email":      user.Email,
			"full_name":  user.FullName,
			"created_at": user.CreatedAt,
		},
		"session":      session,
		"organization": orgJSON(org),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}

	user, session, err := h.identity.SignInWithPassword(r.Context(), body.Email, body.Password)
	if err != nil {
		AuditLog(h.log, r, "auth.login", "", "", false, err.Error())
		writeErr(w, apperr.KindAuthentication, "invalid email or password")
		return
	}
	AuditLog(h.log, r, "auth.login", "", user.ID.String(), true, "")
	writeSuccess(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":         user.ID.String(),
			"email":      user.Email,
			"full_name":  user.FullName,
			"created_at": user.CreatedAt,
		},
		"session": session,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	session, err := h.identity.RefreshSession(r.Context(), body.RefreshToken)
	if err != nil {
		writeErr(w, apperr.KindAuthentication, "invalid or expired refresh token")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"session": session})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if token != "" {
		if err := h.identity.SignOut(r.Context(), token); err != nil {
			h.log.Warn().Err(err).Msg("sign-out against identity provider failed")
		}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// ResetPassword always answers success so the endpoint cannot be used to
// probe which emails have accounts.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email" validate:"required,email,max=254"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	if err := h.identity.SendPasswordReset(r.Context(), body.Email); err != nil {
		h.log.Warn().Err(err).Msg("password reset request failed")
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "if an account with that email exists, a reset link has been sent",
	})
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		writeErr(w, apperr.KindAuthentication, "authentication required")
		return
	}
	var body struct {
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, apperr.KindValidation, err.Error())
		return
	}
	if err := h.identity.UpdatePassword(r.Context(), token, body.Password); err != nil {
		writeAppErr(w, err)
		return
	}
	principal := middleware.PrincipalFromContext(r.Context())
	userID := ""
	if principal != nil {
		userID = principal.ID.String()
	}
	AuditLog(h.log, r, "auth.update_password", "", userID, true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"message": "password updated"})
}

// Me returns the principal derived from the verified token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		writeErr(w, apperr.KindAuthentication, "authentication required")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":             principal.ID.String(),
			"email":          principal.Email,
			"email_verified": principal.EmailVerified,
			"role":           principal.RoleHint,
			"created_at":     principal.CreatedAt,
		},
	})
}
