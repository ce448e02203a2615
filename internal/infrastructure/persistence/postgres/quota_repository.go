package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
)

// QuotaRepository reads usage snapshots via the get_organization_quota_usage
// database function. Counts are recomputed inside the function on every call.
type QuotaRepository struct {
	pool *pgxpool.Pool
}

func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{pool: pool}
}

func (r *QuotaRepository) Usage(ctx context.Context, orgID domain.OrganizationID) (*domain.QuotaUsage, error) {
	var u domain.QuotaUsage
	err := r.pool.QueryRow(ctx, `
		SELECT current_clients, max_clients,
			current_documents_this_month, max_documents_per_month,
			current_storage_mb, max_storage_mb,
			subscription_tier, subscription_status
		FROM get_organization_quota_usage($1)`, orgID.UUID).Scan(
		&u.CurrentClients, &u.MaxClients,
		&u.CurrentDocumentsThisMonth, &u.MaxDocumentsPerMonth,
		&u.CurrentStorageMB, &u.MaxStorageMB,
		&u.SubscriptionTier, &u.SubscriptionStatus)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ ports.QuotaReader = (*QuotaRepository)(nil)
