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

const clientColumns = `id, organization_id, name, tax_id, alternative_names, email, phone, address,
	city, industry, company_size, assigned_accountant_id, portal_enabled, is_active,
	created_by, created_at, updated_at`

// Columns allowed in ORDER BY. Anything else falls back to name.
var clientOrderColumns = map[string]bool{
	"name":       true,
	"tax_id":     true,
	"city":       true,
	"created_at": true,
	"updated_at": true,
}

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) error {
	if c.ID.UUID == (uuid.UUID{}) {
		c.ID = domain.NewClientID(uuid.New())
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	var accountant *uuid.UUID
	if c.AssignedAccountantID != nil {
		accountant = &c.AssignedAccountantID.UUID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clients (id, organization_id, name, tax_id, alternative_names, email, phone, address,
			city, industry, company_size, assigned_accountant_id, portal_enabled, is_active,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID.UUID, c.OrganizationID.UUID, c.Name, c.TaxID, c.AlternativeNames, c.Email, c.Phone, c.Address,
		c.City, c.Industry, c.CompanySize, accountant, c.PortalEnabled, c.IsActive,
		c.CreatedBy.UUID, c.CreatedAt, c.UpdatedAt)
	return translateError(err)
}

func (r *ClientRepository) GetByID(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE organization_id = $1 AND id = $2`,
		orgID.UUID, id.UUID)
	return scanClient(row)
}

func (r *ClientRepository) GetByTaxID(ctx context.Context, orgID domain.OrganizationID, taxID string) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE organization_id = $1 AND tax_id = $2`,
		orgID.UUID, taxID)
	return scanClient(row)
}

func (r *ClientRepository) List(ctx context.Context, orgID domain.OrganizationID, f domain.ClientFilter) ([]*domain.Client, int, error) {
	where := []string{"organization_id = $1"}
	args := []any{orgID.UUID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.IsActive != nil {
		where = append(where, "is_active = "+arg(*f.IsActive))
	}
	if f.AssignedAccountantID != nil {
		where = append(where, "assigned_accountant_id = "+arg(f.AssignedAccountantID.UUID))
	}
	if f.City != "" {
		where = append(where, "city ILIKE "+arg(f.City))
	}
	if f.Industry != "" {
		where = append(where, "industry = "+arg(f.Industry))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR tax_id ILIKE %s OR email ILIKE %s)", p, p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM clients WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := f.OrderBy
	if !clientOrderColumns[orderBy] {
		orderBy = "name"
	}
	dir := "ASC"
	if strings.EqualFold(f.OrderDirection, "desc") {
		dir = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM clients WHERE %s ORDER BY %s %s LIMIT %s OFFSET %s",
		clientColumns, cond, orderBy, dir, arg(limit), arg(f.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID, fields map[string]any) (*domain.Client, error) {
	set, args := buildSetClause(fields)
	args = append(args, orgID.UUID, id.UUID)
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE clients SET %s, updated_at = now()
		 WHERE organization_id = $%d AND id = $%d RETURNING `+clientColumns,
		set, len(args)-1, len(args)), args...)
	c, err := scanClient(row)
	if err != nil {
		return nil, translateError(err)
	}
	return c, nil
}

func (r *ClientRepository) Deactivate(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET is_active = false, updated_at = now()
		WHERE organization_id = $1 AND id = $2 RETURNING `+clientColumns,
		orgID.UUID, id.UUID)
	return scanClient(row)
}

func (r *ClientRepository) FindByTaxID(ctx context.Context, orgID domain.OrganizationID, taxID string) (*domain.ClientMatch, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+prefixColumns(clientColumns, "c")+`, m.match_type, m.confidence
		 FROM find_client_by_tax_id($1, $2) m
		 JOIN clients c ON c.id = m.client_id`,
		orgID.UUID, taxID)
	m, err := scanClientMatch(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *ClientRepository) FindByName(ctx context.Context, orgID domain.OrganizationID, name string, threshold float64) ([]*domain.ClientMatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+prefixColumns(clientColumns, "c")+`, m.match_type, m.confidence
		 FROM find_client_by_name($1, $2, $3) m
		 JOIN clients c ON c.id = m.client_id
		 ORDER BY m.confidence DESC`,
		orgID.UUID, name, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ClientMatch
	for rows.Next() {
		m, err := scanClientMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c          domain.Client
		id, orgID  uuid.UUID
		createdBy  uuid.UUID
		accountant *uuid.UUID
	)
	err := row.Scan(&id, &orgID, &c.Name, &c.TaxID, &c.AlternativeNames, &c.Email, &c.Phone, &c.Address,
		&c.City, &c.Industry, &c.CompanySize, &accountant, &c.PortalEnabled, &c.IsActive,
		&createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.ID = domain.NewClientID(id)
	c.OrganizationID = domain.NewOrganizationID(orgID)
	c.CreatedBy = domain.NewUserID(createdBy)
	if accountant != nil {
		uid := domain.NewUserID(*accountant)
		c.AssignedAccountantID = &uid
	}
	return &c, nil
}

func scanClientMatch(row pgx.Row) (*domain.ClientMatch, error) {
	var (
		m          domain.ClientMatch
		id, orgID  uuid.UUID
		createdBy  uuid.UUID
		accountant *uuid.UUID
	)
	err := row.Scan(&id, &orgID, &m.Name, &m.TaxID, &m.AlternativeNames, &m.Email, &m.Phone, &m.Address,
		&m.City, &m.Industry, &m.CompanySize, &accountant, &m.PortalEnabled, &m.IsActive,
		&createdBy, &m.CreatedAt, &m.UpdatedAt, &m.MatchType, &m.Confidence)
	if err != nil {
		return nil, err
	}
	m.Client.ID = domain.NewClientID(id)
	m.OrganizationID = domain.NewOrganizationID(orgID)
	m.CreatedBy = domain.NewUserID(createdBy)
	if accountant != nil {
		uid := domain.NewUserID(*accountant)
		m.AssignedAccountantID = &uid
	}
	return &m, nil
}

func prefixColumns(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

var _ ports.ClientRepository = (*ClientRepository)(nil)
