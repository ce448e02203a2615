package organization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// Columns an organization owner may patch. Maps request fields to columns;
// anything else in the payload is silently dropped.
var updatableColumns = map[string]bool{
	"name":     true,
	"email":    true,
	"tax_id":   true,
	"phone":    true,
	"address":  true,
	"city":     true,
	"country":  true,
	"settings": true,
}

// CreateInput carries the fields accepted when registering an organization.
type CreateInput struct {
	Name    string
	Email   string
	TaxID   *string
	Phone   *string
	Address *string
	City    *string
	Country string
}

// Service implements organization and membership operations.
type Service struct {
	orgs    ports.OrganizationRepository
	members ports.MembershipRepository
	quotas  ports.QuotaReader
	log     zerolog.Logger
}

func NewService(orgs ports.OrganizationRepository, members ports.MembershipRepository, quotas ports.QuotaReader, log zerolog.Logger) *Service {
	return &Service{
		orgs:    orgs,
		members: members,
		quotas:  quotas,
		log:     log.With().Str("component", "organization_service").Logger(),
	}
}

// Create registers an organization on the trial tier and makes the creator
// its org_admin. If the membership insert fails the organization row is
// removed again so a half-created tenant never survives.
func (s *Service) Create(ctx context.Context, creator domain.UserID, in CreateInput) (*domain.Organization, error) {
	if in.Name == "" || in.Email == "" {
		return nil, apperr.Validation("organization name and email are required")
	}
	if in.TaxID != nil && *in.TaxID != "" && !domain.IsValidTaxID(*in.TaxID) {
		return nil, apperr.Validation("tax ID must be 8 to 13 digits")
	}

	existing, err := s.orgs.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("an organization with this email already exists")
	}

	trialEnds := time.Now().AddDate(0, 0, domain.TrialPeriodDays)
	country := in.Country
	if country == "" {
		country = "ME"
	}
	org := &domain.Organization{
		Name:               in.Name,
		Email:              in.Email,
		TaxID:              in.TaxID,
		Phone:              in.Phone,
		Address:            in.Address,
		City:               in.City,
		Country:            country,
		SubscriptionTier:   domain.TierTrial,
		SubscriptionStatus: "active",
		TrialEndsAt:        &trialEnds,
		Settings:           map[string]any{},
		CreatedBy:          creator,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}

	membership := &domain.Membership{
		OrganizationID: org.ID,
		UserID:         creator,
		Role:           domain.RoleOrgAdmin,
		IsActive:       true,
	}
	if err := s.members.Create(ctx, membership); err != nil {
		if delErr := s.orgs.Delete(ctx, org.ID); delErr != nil {
			s.log.Error().Err(delErr).
				Str("organization_id", org.ID.String()).
				Msg("failed to roll back organization after membership error")
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}

	s.log.Info().
		Str("organization_id", org.ID.String()).
		Str("created_by", creator.String()).
		Msg("organization created")
	return org, nil
}

// GetForUser lists organizations where the user holds an active membership.
func (s *Service) GetForUser(ctx context.Context, userID domain.UserID) ([]*domain.OrganizationWithRole, error) {
	return s.orgs.ListForUser(ctx, userID)
}

// GetByID fetches a single organization.
func (s *Service) GetByID(ctx context.Context, orgID domain.OrganizationID) (*domain.Organization, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperr.NotFound("organization not found")
	}
	return org, nil
}

// GetWithStats fetches an organization alongside its quota usage and active
// member count.
func (s *Service) GetWithStats(ctx context.Context, orgID domain.OrganizationID) (*domain.Organization, *domain.OrganizationStats, error) {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	usage, err := s.quotas.Usage(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	count, err := s.members.CountActive(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	return org, &domain.OrganizationStats{QuotaUsage: usage, MemberCount: count}, nil
}

// Update applies the allow-listed subset of fields and returns the row.
func (s *Service) Update(ctx context.Context, orgID domain.OrganizationID, fields map[string]any) (*domain.Organization, error) {
	patch := make(map[string]any, len(fields))
	for k, v := range fields {
		if updatableColumns[k] {
			patch[k] = v
		}
	}
	if len(patch) == 0 {
		return nil, apperr.Validation("no updatable fields provided")
	}
	if v, ok := patch["tax_id"]; ok {
		if taxID, _ := v.(string); taxID != "" && !domain.IsValidTaxID(taxID) {
			return nil, apperr.Validation("tax ID must be 8 to 13 digits")
		}
	}
	org, err := s.orgs.Update(ctx, orgID, patch)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperr.NotFound("organization not found")
	}
	return org, nil
}

// GetMembers lists the active memberships of an organization.
func (s *Service) GetMembers(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error) {
	return s.members.List(ctx, orgID)
}

// AddMember attaches a user with the given role. A previously deactivated
// membership is reactivated with the new role instead of duplicated.
func (s *Service) AddMember(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error) {
	if !domain.IsValidRole(role) {
		return nil, apperr.Validation("invalid role").WithDetails(map[string]any{
			"valid_roles": domain.ValidRoles,
		})
	}

	existing, err := s.members.Get(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return nil, apperr.Conflict("user is already a member of this organization")
		}
		return s.members.Reactivate(ctx, orgID, userID, role)
	}

	m := &domain.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		IsActive:       true,
	}
	if err := s.members.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember soft-deactivates a membership. The last active org_admin can
// never be removed.
func (s *Service) RemoveMember(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error) {
	existing, err := s.members.Get(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil || !existing.IsActive {
		return nil, apperr.NotFound("member not found")
	}
	if existing.Role == domain.RoleOrgAdmin {
		if err := s.ensureNotLastAdmin(ctx, orgID); err != nil {
			return nil, err
		}
	}
	return s.members.Deactivate(ctx, orgID, userID)
}

// UpdateMemberRole changes a member's role. Demoting the last active
// org_admin is rejected for the same reason removing them is.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role string) (*domain.Membership, error) {
	if !domain.IsValidRole(role) {
		return nil, apperr.Validation("invalid role").WithDetails(map[string]any{
			"valid_roles": domain.ValidRoles,
		})
	}
	existing, err := s.members.Get(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil || !existing.IsActive {
		return nil, apperr.NotFound("member not found")
	}
	if existing.Role == domain.RoleOrgAdmin && role != domain.RoleOrgAdmin {
		if err := s.ensureNotLastAdmin(ctx, orgID); err != nil {
			return nil, err
		}
	}
	return s.members.UpdateRole(ctx, orgID, userID, role)
}

func (s *Service) ensureNotLastAdmin(ctx context.Context, orgID domain.OrganizationID) error {
	admins, err := s.members.CountActiveAdmins(ctx, orgID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return apperr.Validation("cannot remove the last admin of an organization")
	}
	return nil
}
