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

const organizationColumns = `id, name, email, tax_id, phone, address, city, country,
	subscription_tier, subscription_status, trial_ends_at, settings, created_by, created_at, updated_at`

type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.ID.UUID == (uuid.UUID{}) {
		org.ID = domain.NewOrganizationID(uuid.New())
	}
	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, email, tax_id, phone, address, city, country,
			subscription_tier, subscription_status, trial_ends_at, settings, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		org.ID.UUID, org.Name, org.Email, org.TaxID, org.Phone, org.Address, org.City, org.Country,
		org.SubscriptionTier, org.SubscriptionStatus, org.TrialEndsAt, org.Settings,
		org.CreatedBy.UUID, org.CreatedAt, org.UpdatedAt)
	return translateError(err)
}

func (r *OrganizationRepository) GetByID(ctx context.Context, orgID domain.OrganizationID) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, orgID.UUID)
	return scanOrganization(row)
}

func (r *OrganizationRepository) GetByEmail(ctx context.Context, email string) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE email = $1`, email)
	return scanOrganization(row)
}

func (r *OrganizationRepository) Update(ctx context.Context, orgID domain.OrganizationID, fields map[string]any) (*domain.Organization, error) {
	set, args := buildSetClause(fields)
	args = append(args, orgID.UUID)
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE organizations SET %s, updated_at = now() WHERE id = $%d RETURNING `+organizationColumns,
		set, len(args)), args...)
	org, err := scanOrganization(row)
	if err != nil {
		return nil, translateError(err)
	}
	return org, nil
}

func (r *OrganizationRepository) Delete(ctx context.Context, orgID domain.OrganizationID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID.UUID)
	return translateError(err)
}

func (r *OrganizationRepository) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.OrganizationWithRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.name, o.email, o.tax_id, o.phone, o.address, o.city, o.country,
			o.subscription_tier, o.subscription_status, o.trial_ends_at, o.settings,
			o.created_by, o.created_at, o.updated_at,
			m.role, m.joined_at
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY m.joined_at DESC`, userID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.OrganizationWithRole
	for rows.Next() {
		var (
			o         domain.Organization
			orgUUID   uuid.UUID
			createdBy uuid.UUID
			role      string
			joinedAt  time.Time
		)
		if err := rows.Scan(&orgUUID, &o.Name, &o.Email, &o.TaxID, &o.Phone, &o.Address, &o.City, &o.Country,
			&o.SubscriptionTier, &o.SubscriptionStatus, &o.TrialEndsAt, &o.Settings,
			&createdBy, &o.CreatedAt, &o.UpdatedAt, &role, &joinedAt); err != nil {
			return nil, err
		}
		o.ID = domain.NewOrganizationID(orgUUID)
		o.CreatedBy = domain.NewUserID(createdBy)
		out = append(out, &domain.OrganizationWithRole{Organization: o, UserRole: role, JoinedAt: joinedAt})
	}
	return out, rows.Err()
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var (
		o         domain.Organization
		orgUUID   uuid.UUID
		createdBy uuid.UUID
	)
	err := row.Scan(&orgUUID, &o.Name, &o.Email, &o.TaxID, &o.Phone, &o.Address, &o.City, &o.Country,
		&o.SubscriptionTier, &o.SubscriptionStatus, &o.TrialEndsAt, &o.Settings,
		&createdBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	o.ID = domain.NewOrganizationID(orgUUID)
	o.CreatedBy = domain.NewUserID(createdBy)
	return &o, nil
}

// buildSetClause turns an allow-listed column/value map into "col = $n"
// fragments. Keys are column names validated by the service layer.
func buildSetClause(fields map[string]any) (string, []any) {
	parts := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	i := 1
	for col, val := range fields {
		parts = append(parts, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	return strings.Join(parts, ", "), args
}

var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)
