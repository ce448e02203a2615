package ports

import (
	"context"

	"github.com/petar554/fakturo/internal/domain"
)

// OrganizationRepository defines persistence for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, orgID domain.OrganizationID) (*domain.Organization, error)
	GetByEmail(ctx context.Context, email string) (*domain.Organization, error)
	// Update applies an allow-listed column/value map and returns the row.
	Update(ctx context.Context, orgID domain.OrganizationID, fields map[string]any) (*domain.Organization, error)
	// Delete hard-deletes the row. Only used as the compensating step of the
	// create-organization saga; organizations are otherwise never removed.
	Delete(ctx context.Context, orgID domain.OrganizationID) error
	// ListForUser returns organizations where the user holds an active
	// membership, annotated with role and join time.
	ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.OrganizationWithRole, error)
}

// MembershipRepository defines persistence for organization memberships.
type MembershipRepository interface {
	// Get returns the membership row regardless of active flag, or nil.
	Get(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error)
	List(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error)
	CountActive(ctx context.Context, orgID domain.OrganizationID) (int, error)
	CountActiveAdmins(ctx context.Context, orgID domain.OrganizationID) (int, error)
	Create(ctx context.Context, m *domain.Membership) error
	Reactivate(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error)
	Deactivate(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error)
	UpdateRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error)
}

// ClientRepository defines persistence for clients. Every method is scoped
// by organization id; the scoping predicate is the tenant-isolation
// enforcement point.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error)
	GetByTaxID(ctx context.Context, orgID domain.OrganizationID, taxID string) (*domain.Client, error)
	List(ctx context.Context, orgID domain.OrganizationID, f domain.ClientFilter) ([]*domain.Client, int, error)
	Update(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID, fields map[string]any) (*domain.Client, error)
	Deactivate(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error)
	// FindByTaxID invokes the stored exact-match function.
	FindByTaxID(ctx context.Context, orgID domain.OrganizationID, taxID string) (*domain.ClientMatch, error)
	// FindByName invokes the stored trigram-similarity function.
	FindByName(ctx context.Context, orgID domain.OrganizationID, name string, threshold float64) ([]*domain.ClientMatch, error)
}

// DocumentRepository defines persistence for document records.
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	ListForClient(ctx context.Context, orgID domain.OrganizationID, clientID domain.ClientID, f domain.DocumentFilter) ([]*domain.Document, error)
	StatsForClient(ctx context.Context, orgID domain.OrganizationID, clientID domain.ClientID) (*domain.DocumentStats, error)
}

// QuotaReader returns the current usage snapshot for an organization.
// Implementations must re-derive on every call; the snapshot is never cached.
type QuotaReader interface {
	Usage(ctx context.Context, orgID domain.OrganizationID) (*domain.QuotaUsage, error)
}
