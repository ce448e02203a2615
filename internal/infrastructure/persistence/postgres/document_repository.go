package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
)

const documentColumns = `id, organization_id, client_id, filename, original_filename,
	document_type, document_status, file_size, mime_type, source, created_by, created_at, updated_at`

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if d.ID.UUID == (uuid.UUID{}) {
		d.ID = domain.NewDocumentID(uuid.New())
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	var clientID *uuid.UUID
	if d.ClientID != nil {
		clientID = &d.ClientID.UUID
	}
	var createdBy *uuid.UUID
	if d.CreatedBy != nil {
		createdBy = &d.CreatedBy.UUID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, organization_id, client_id, filename, original_filename,
			document_type, document_status, file_size, mime_type, source, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID.UUID, d.OrganizationID.UUID, clientID, d.Filename, d.OriginalFilename,
		d.DocumentType, d.DocumentStatus, d.FileSize, d.MimeType, d.Source, createdBy, d.CreatedAt, d.UpdatedAt)
	return translateError(err)
}

func (r *DocumentRepository) ListForClient(ctx context.Context, orgID domain.OrganizationID, clientID domain.ClientID, f domain.DocumentFilter) ([]*domain.Document, error) {
	where := []string{"organization_id = $1", "client_id = $2"}
	args := []any{orgID.UUID, clientID.UUID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DocumentType != "" {
		where = append(where, "document_type = "+arg(f.DocumentType))
	}
	if f.DocumentStatus != "" {
		where = append(where, "document_status = "+arg(f.DocumentStatus))
	}
	if f.DateFrom != nil {
		where = append(where, "created_at >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, "created_at <= "+arg(*f.DateTo))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM documents WHERE %s ORDER BY created_at DESC LIMIT %s",
		documentColumns, strings.Join(where, " AND "), arg(limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DocumentRepository) StatsForClient(ctx context.Context, orgID domain.OrganizationID, clientID domain.ClientID) (*domain.DocumentStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT document_type, document_status, count(*)
		FROM documents
		WHERE organization_id = $1 AND client_id = $2
		GROUP BY document_type, document_status`,
		orgID.UUID, clientID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.DocumentStats{
		ByType:   map[string]int{},
		ByStatus: map[string]int{},
	}
	for rows.Next() {
		var (
			docType, status string
			n               int
		)
		if err := rows.Scan(&docType, &status, &n); err != nil {
			return nil, err
		}
		stats.TotalDocuments += n
		stats.ByType[docType] += n
		stats.ByStatus[status] += n
	}
	return stats, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		d         domain.Document
		id, orgID uuid.UUID
		clientID  *uuid.UUID
		createdBy *uuid.UUID
	)
	err := row.Scan(&id, &orgID, &clientID, &d.Filename, &d.OriginalFilename,
		&d.DocumentType, &d.DocumentStatus, &d.FileSize, &d.MimeType, &d.Source,
		&createdBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	d.ID = domain.NewDocumentID(id)
	d.OrganizationID = domain.NewOrganizationID(orgID)
	if clientID != nil {
		cid := domain.NewClientID(*clientID)
		d.ClientID = &cid
	}
	if createdBy != nil {
		uid := domain.NewUserID(*createdBy)
		d.CreatedBy = &uid
	}
	return &d, nil
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)
