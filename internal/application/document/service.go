package document

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// Service creates document records for files arriving from the email
// ingestion pipeline. Client matching happens later in the processing
// pipeline, so records start unassigned and pending.
type Service struct {
	documents ports.DocumentRepository
	log       zerolog.Logger
}

func NewService(documents ports.DocumentRepository, log zerolog.Logger) *Service {
	return &Service{
		documents: documents,
		log:       log.With().Str("component", "document_service").Logger(),
	}
}

// Ingest persists a pending document record for one email attachment.
func (s *Service) Ingest(ctx context.Context, att ports.IngestAttachment) (*domain.Document, error) {
	orgUUID, err := uuid.Parse(att.OrganizationID)
	if err != nil {
		return nil, apperr.Validation("invalid organization id in ingest payload")
	}
	if att.Filename == "" {
		return nil, apperr.Validation("attachment filename is required")
	}

	d := &domain.Document{
		OrganizationID:   domain.NewOrganizationID(orgUUID),
		Filename:         att.Filename,
		OriginalFilename: att.Filename,
		DocumentType:     typeFromFilename(att.Filename),
		DocumentStatus:   domain.DocumentStatusPending,
		FileSize:         att.Size,
		MimeType:         att.ContentType,
		Source:           "email",
	}
	if err := s.documents.Create(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("organization_id", d.OrganizationID.String()).
		Str("document_id", d.ID.String()).
		Str("filename", d.Filename).
		Msg("document record created from email attachment")
	return d, nil
}

func typeFromFilename(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return "pdf"
	case "docx":
		return "docx"
	case "xml":
		return "xml"
	}
	return "unknown"
}
