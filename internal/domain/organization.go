package domain

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles. super_admin is a platform-level role carried in the
// token, never stored in organization_members.
const (
	RoleSuperAdmin = "super_admin"
	RoleOrgAdmin   = "org_admin"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
	RoleClient     = "client"
)

// ValidRoles lists the roles assignable to an organization member.
var ValidRoles = []string{RoleOrgAdmin, RoleAccountant, RoleViewer, RoleClient}

// IsValidRole reports whether role can be assigned to a member.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Subscription tier granted on creation and the trial length in days.
const (
	TierTrial       = "trial"
	TrialPeriodDays = 14
)

// OrganizationID is a value object for organization (tenant) identity.
type OrganizationID struct{ uuid.UUID }

// NewOrganizationID creates a new OrganizationID from uuid.
func NewOrganizationID(id uuid.UUID) OrganizationID { return OrganizationID{UUID: id} }

// String returns the canonical string form.
func (o OrganizationID) String() string { return o.UUID.String() }

// Organization is a tenant (accounting firm). It exclusively owns its
// memberships and clients; no query may cross an organization boundary.
type Organization struct {
	ID                 OrganizationID
	Name               string
	Email              string
	TaxID              *string
	Phone              *string
	Address            *string
	City               *string
	Country            string
	SubscriptionTier   string
	SubscriptionStatus string
	TrialEndsAt        *time.Time
	Settings           map[string]any
	CreatedBy          UserID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Membership links a user to an organization with a role.
// Composite key (OrganizationID, UserID). Removal is a soft deactivate.
type Membership struct {
	OrganizationID OrganizationID
	UserID         UserID
	Role           string
	IsActive       bool
	JoinedAt       time.Time
	LastActivityAt *time.Time
}

// OrganizationWithRole is an organization annotated with the caller's
// membership, as returned by the "my organizations" listing.
type OrganizationWithRole struct {
	Organization
	UserRole string
	JoinedAt time.Time
}

// OrganizationStats augments an organization with usage figures.
type OrganizationStats struct {
	QuotaUsage  *QuotaUsage
	MemberCount int
}
