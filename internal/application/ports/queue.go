package ports

import (
	"context"
	"time"
)

// IngestAttachment is the payload handed to the background queue for each
// qualifying email attachment.
type IngestAttachment struct {
	OrganizationID string    `json:"organization_id"`
	Filename       string    `json:"filename"`
	ContentType    string    `json:"content_type"`
	Size           int64     `json:"size"`
	Subject        string    `json:"subject"`
	From           string    `json:"from"`
	ReceivedAt     time.Time `json:"received_at"`
}

// TaskEnqueuer submits background work. A no-op implementation is used when
// no queue backend is configured.
type TaskEnqueuer interface {
	EnqueueDocumentIngest(ctx context.Context, att IngestAttachment) error
}
