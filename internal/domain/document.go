package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses as tracked by the processing pipeline.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusProcessed = "processed"
	DocumentStatusError     = "error"
)

// DocumentID is a value object for document identity.
type DocumentID struct{ uuid.UUID }

// NewDocumentID creates a new DocumentID from uuid.
func NewDocumentID(id uuid.UUID) DocumentID { return DocumentID{UUID: id} }

// String returns the canonical string form.
func (d DocumentID) String() string { return d.UUID.String() }

// Document is an ingested or uploaded file record. This system creates and
// lists records; the binary content lives in external object storage.
type Document struct {
	ID               DocumentID
	OrganizationID   OrganizationID
	ClientID         *ClientID
	Filename         string
	OriginalFilename string
	DocumentType     string
	DocumentStatus   string
	FileSize         int64
	MimeType         string
	Source           string
	CreatedBy        *UserID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DocumentFilter narrows a client-scoped document listing.
type DocumentFilter struct {
	DocumentType   string
	DocumentStatus string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
}

// DocumentStats aggregates a client's documents by type and status.
type DocumentStats struct {
	TotalDocuments int            `json:"total_documents"`
	ByType         map[string]int `json:"by_type"`
	ByStatus       map[string]int `json:"by_status"`
}
