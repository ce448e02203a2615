package client

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// DefaultFuzzyThreshold is the minimum trigram similarity accepted when no
// threshold is given by the caller.
const DefaultFuzzyThreshold = 0.6

// Columns a tenant may patch on a client record.
var updatableColumns = map[string]bool{
	"name":                   true,
	"tax_id":                 true,
	"alternative_names":      true,
	"email":                  true,
	"phone":                  true,
	"address":                true,
	"city":                   true,
	"industry":               true,
	"company_size":           true,
	"assigned_accountant_id": true,
	"portal_enabled":         true,
	"is_active":              true,
}

// CreateInput carries the fields accepted when registering a client.
type CreateInput struct {
	Name                 string
	TaxID                string
	AlternativeNames     []string
	Email                *string
	Phone                *string
	Address              *string
	City                 *string
	Industry             *string
	CompanySize          *string
	AssignedAccountantID *domain.UserID
	PortalEnabled        bool
}

// Service implements client management scoped to one organization per call.
type Service struct {
	clients   ports.ClientRepository
	members   ports.MembershipRepository
	documents ports.DocumentRepository
	log       zerolog.Logger
}

func NewService(clients ports.ClientRepository, members ports.MembershipRepository, documents ports.DocumentRepository, log zerolog.Logger) *Service {
	return &Service{
		clients:   clients,
		members:   members,
		documents: documents,
		log:       log.With().Str("component", "client_service").Logger(),
	}
}

// Create registers a client. (organization, tax ID) must be unique; the
// pre-check gives a friendly conflict before the constraint would.
func (s *Service) Create(ctx context.Context, orgID domain.OrganizationID, creator domain.UserID, in CreateInput) (*domain.Client, error) {
	if in.Name == "" {
		return nil, apperr.Validation("client name is required")
	}
	if !domain.IsValidTaxID(in.TaxID) {
		return nil, apperr.Validation("tax ID must be 8 to 13 digits")
	}

	existing, err := s.clients.GetByTaxID(ctx, orgID, in.TaxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("a client with this tax ID already exists").WithDetails(map[string]any{
			"existing_client_id": existing.ID.String(),
		})
	}

	c := &domain.Client{
		OrganizationID:       orgID,
		Name:                 in.Name,
		TaxID:                in.TaxID,
		AlternativeNames:     in.AlternativeNames,
		Email:                in.Email,
		Phone:                in.Phone,
		Address:              in.Address,
		City:                 in.City,
		Industry:             in.Industry,
		CompanySize:          in.CompanySize,
		AssignedAccountantID: in.AssignedAccountantID,
		PortalEnabled:        in.PortalEnabled,
		IsActive:             true,
		CreatedBy:            creator,
	}
	if c.AssignedAccountantID != nil {
		if err := s.ensureAccountantEligible(ctx, orgID, *c.AssignedAccountantID); err != nil {
			return nil, err
		}
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("organization_id", orgID.String()).
		Str("client_id", c.ID.String()).
		Msg("client created")
	return c, nil
}

// List returns one page of the organization's clients with the total count.
func (s *Service) List(ctx context.Context, orgID domain.OrganizationID, f domain.ClientFilter) (*domain.ClientPage, error) {
	clients, total, err := s.clients.List(ctx, orgID, f)
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Offset/limit + 1
	return &domain.ClientPage{Clients: clients, Count: total, Page: page, Limit: limit}, nil
}

// GetByID fetches one client within the organization.
func (s *Service) GetByID(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	c, err := s.clients.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("client not found")
	}
	return c, nil
}

// GetWithStats fetches a client alongside its document aggregates.
func (s *Service) GetWithStats(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, *domain.DocumentStats, error) {
	c, err := s.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.documents.StatsForClient(ctx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	return c, stats, nil
}

// Update applies the allow-listed subset of fields and returns the row.
func (s *Service) Update(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID, fields map[string]any) (*domain.Client, error) {
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
		taxID, _ := v.(string)
		if !domain.IsValidTaxID(taxID) {
			return nil, apperr.Validation("tax ID must be 8 to 13 digits")
		}
	}
	c, err := s.clients.Update(ctx, orgID, id, patch)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("client not found")
	}
	return c, nil
}

// Delete soft-deactivates a client; the row and its documents stay.
func (s *Service) Delete(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	c, err := s.clients.Deactivate(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("client not found")
	}
	return c, nil
}

// FindByTaxID is the exact lookup used by the document-matching pipeline.
func (s *Service) FindByTaxID(ctx context.Context, orgID domain.OrganizationID, taxID string) (*domain.ClientMatch, error) {
	if !domain.IsValidTaxID(taxID) {
		return nil, apperr.Validation("tax ID must be 8 to 13 digits")
	}
	return s.clients.FindByTaxID(ctx, orgID, taxID)
}

// FindByName is the fuzzy lookup used by the document-matching pipeline.
func (s *Service) FindByName(ctx context.Context, orgID domain.OrganizationID, name string, threshold float64) ([]*domain.ClientMatch, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return s.clients.FindByName(ctx, orgID, name, threshold)
}

// Search tries the exact tax-ID match first and only falls back to fuzzy
// name matching when it misses. Exact hits carry confidence 1.0.
func (s *Service) Search(ctx context.Context, orgID domain.OrganizationID, taxID, name string) ([]*domain.ClientMatch, error) {
	if taxID != "" && domain.IsValidTaxID(taxID) {
		match, err := s.clients.FindByTaxID(ctx, orgID, taxID)
		if err != nil {
			return nil, err
		}
		if match != nil {
			match.MatchType = domain.MatchTaxIDExact
			match.Confidence = 1.0
			return []*domain.ClientMatch{match}, nil
		}
	}
	if name == "" {
		return nil, nil
	}
	matches, err := s.clients.FindByName(ctx, orgID, name, DefaultFuzzyThreshold)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		m.MatchType = domain.MatchNameFuzzy
	}
	return matches, nil
}

// GetDocuments lists a client's documents. The client is fetched first so a
// foreign or missing id reads as not-found rather than an empty list.
func (s *Service) GetDocuments(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID, f domain.DocumentFilter) ([]*domain.Document, error) {
	if _, err := s.GetByID(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.documents.ListForClient(ctx, orgID, id, f)
}

// AssignAccountant sets the client's responsible accountant. The assignee
// must hold an active org_admin or accountant membership in the same
// organization.
func (s *Service) AssignAccountant(ctx context.Context, orgID domain.OrganizationID, id domain.ClientID, accountantID domain.UserID) (*domain.Client, error) {
	if err := s.ensureAccountantEligible(ctx, orgID, accountantID); err != nil {
		return nil, err
	}
	c, err := s.clients.Update(ctx, orgID, id, map[string]any{
		"assigned_accountant_id": accountantID.UUID,
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("client not found")
	}
	return c, nil
}

func (s *Service) ensureAccountantEligible(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) error {
	m, err := s.members.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if m == nil || !m.IsActive {
		return apperr.Validation("assigned accountant is not a member of this organization")
	}
	if m.Role != domain.RoleOrgAdmin && m.Role != domain.RoleAccountant {
		return apperr.Validation("assigned accountant must have an accountant or admin role")
	}
	return nil
}
