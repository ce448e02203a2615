package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain/apperr"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
	"github.com/petar554/fakturo/internal/infrastructure/imapingest"
)

// EmailHandler manages per-organization IMAP ingestion sessions.
type EmailHandler struct {
	manager           *imapingest.Manager
	enqueuer          ports.TaskEnqueuer
	allowedExtensions []string
	log               zerolog.Logger
}

func NewEmailHandler(manager *imapingest.Manager, enqueuer ports.TaskEnqueuer, allowedExtensions []string, log zerolog.Logger) *EmailHandler {
	if len(allowedExtensions) == 0 {
		allowedExtensions = imapingest.DefaultAllowedExtensions
	}
	return &EmailHandler{
		manager:           manager,
		enqueuer:          enqueuer,
		allowedExtensions: allowedExtensions,
		log:               log,
	}
}

// Configure stores mailbox settings for the resolved organization.
func (h *EmailHandler) Configure(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var settings imapingest.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	session := h.manager.Session(oc.OrganizationID)
	if err := session.Configure(settings); err != nil {
		writeAppErr(w, err)
		return
	}
	AuditLog(h.log, r, "email.configure", oc.OrganizationID.String(), "", true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"status": session.Status()})
}

// Test runs a connection test against the supplied settings without
// touching the stored session.
func (h *EmailHandler) Test(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var settings imapingest.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeErr(w, apperr.KindValidation, "invalid request body")
		return
	}
	result := imapingest.TestConnection(oc.OrganizationID, settings, h.log)
	writeSuccess(w, http.StatusOK, map[string]any{"result": result})
}

// Status reports the session's configuration and connection state.
func (h *EmailHandler) Status(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	session := h.manager.Session(oc.OrganizationID)
	writeSuccess(w, http.StatusOK, map[string]any{"status": session.Status()})
}

// Process fetches new mail, filters attachments by type and enqueues an
// ingest task per qualifying attachment.
func (h *EmailHandler) Process(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	var body struct {
		SinceDays int `json:"since_days"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.SinceDays <= 0 {
		body.SinceDays = 7
	}
	since := time.Now().AddDate(0, 0, -body.SinceDays)

	session := h.manager.Session(oc.OrganizationID)
	emails, err := session.ProcessNewEmails(since, h.allowedExtensions)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	enqueued := 0
	for _, email := range emails {
		for _, att := range email.Attachments {
			task := ports.IngestAttachment{
				OrganizationID: oc.OrganizationID.String(),
				Filename:       att.Filename,
				ContentType:    att.ContentType,
				Size:           att.Size,
				Subject:        email.Subject,
				From:           email.From,
				ReceivedAt:     email.Date,
			}
			if err := h.enqueuer.EnqueueDocumentIngest(r.Context(), task); err != nil {
				h.log.Warn().Err(err).Str("filename", att.Filename).Msg("ingest enqueue failed")
				continue
			}
			enqueued++
		}
	}

	AuditLog(h.log, r, "email.process", oc.OrganizationID.String(), "", true, "")
	writeSuccess(w, http.StatusOK, map[string]any{
		"emails":   emails,
		"enqueued": enqueued,
	})
}

// Disconnect closes and forgets the organization's session.
func (h *EmailHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	oc := middleware.OrgFromContext(r.Context())
	h.manager.Disconnect(oc.OrganizationID)
	AuditLog(h.log, r, "email.disconnect", oc.OrganizationID.String(), "", true, "")
	writeSuccess(w, http.StatusOK, map[string]any{"message": "disconnected"})
}
