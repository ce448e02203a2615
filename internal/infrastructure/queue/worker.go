package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/document"
	"github.com/petar554/fakturo/internal/application/ports"
)

// Worker runs Asynq task handlers for background document ingestion.
type Worker struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	documents *document.Service
	log       zerolog.Logger
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, documents *document.Service, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, documents: documents, log: log}
	mux.HandleFunc(TypeDocumentIngest, w.handleDocumentIngest)
	return w
}

func (w *Worker) handleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var att ports.IngestAttachment
	if err := json.Unmarshal(t.Payload(), &att); err != nil {
		w.log.Error().Err(err).Msg("document ingest task payload invalid")
		return err
	}
	if _, err := w.documents.Ingest(ctx, att); err != nil {
		w.log.Error().Err(err).
			Str("organization_id", att.OrganizationID).
			Str("filename", att.Filename).
			Msg("document ingest failed")
		return err
	}
	return nil
}

// Run starts processing tasks and blocks until Shutdown.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
