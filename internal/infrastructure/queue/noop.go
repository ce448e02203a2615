package queue

import (
	"context"

	"github.com/petar554/fakturo/internal/application/ports"
)

// NoopEnqueuer is a no-op enqueuer when Redis/Asynq is not configured.
type NoopEnqueuer struct{}

func NewNoopEnqueuer() *NoopEnqueuer {
	return &NoopEnqueuer{}
}

func (q *NoopEnqueuer) EnqueueDocumentIngest(ctx context.Context, att ports.IngestAttachment) error {
	return nil
}

var _ ports.TaskEnqueuer = (*NoopEnqueuer)(nil)
