package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
)

type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Get(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT organization_id, user_id, role, is_active, joined_at, last_activity_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`, orgID.UUID, userID.UUID)
	return scanMembership(row)
}

func (r *MembershipRepository) List(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT organization_id, user_id, role, is_active, joined_at, last_activity_at
		FROM organization_members
		WHERE organization_id = $1 AND is_active
		ORDER BY joined_at ASC`, orgID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MembershipRepository) CountActive(ctx context.Context, orgID domain.OrganizationID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM organization_members
		WHERE organization_id = $1 AND is_active`, orgID.UUID).Scan(&n)
	return n, err
}

func (r *MembershipRepository) CountActiveAdmins(ctx context.Context, orgID domain.OrganizationID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM organization_members
		WHERE organization_id = $1 AND is_active AND role = $2`, orgID.UUID, domain.RoleOrgAdmin).Scan(&n)
	return n, err
}

func (r *MembershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, is_active, joined_at)
		VALUES ($1, $2, $3, $4, now())`,
		m.OrganizationID.UUID, m.UserID.UUID, m.Role, m.IsActive)
	return translateError(err)
}

func (r *MembershipRepository) Reactivate(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organization_members
		SET is_active = true, role = $3, joined_at = now()
		WHERE organization_id = $1 AND user_id = $2
		RETURNING organization_id, user_id, role, is_active, joined_at, last_activity_at`,
		orgID.UUID, userID.UUID, role)
	m, err := scanMembership(row)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

func (r *MembershipRepository) Deactivate(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organization_members SET is_active = false
		WHERE organization_id = $1 AND user_id = $2
		RETURNING organization_id, user_id, role, is_active, joined_at, last_activity_at`,
		orgID.UUID, userID.UUID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organization_members SET role = $3
		WHERE organization_id = $1 AND user_id = $2 AND is_active
		RETURNING organization_id, user_id, role, is_active, joined_at, last_activity_at`,
		orgID.UUID, userID.UUID, role)
	m, err := scanMembership(row)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m       domain.Membership
		orgUUID uuid.UUID
		usrUUID uuid.UUID
	)
	err := row.Scan(&orgUUID, &usrUUID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LastActivityAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m.OrganizationID = domain.NewOrganizationID(orgUUID)
	m.UserID = domain.NewUserID(usrUUID)
	return &m, nil
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)
