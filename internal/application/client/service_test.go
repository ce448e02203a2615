package client

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

type fakeClientRepo struct {
	clients     map[domain.ClientID]*domain.Client
	fuzzy       []*domain.ClientMatch
	lastFuzzyTh float64
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: map[domain.ClientID]*domain.Client{}}
}

func (r *fakeClientRepo) Create(_ context.Context, c *domain.Client) error {
	if c.ID.UUID == (uuid.UUID{}) {
		c.ID = domain.NewClientID(uuid.New())
	}
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, org domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	c := r.clients[id]
	if c == nil || c.OrganizationID != org {
		return nil, nil
	}
	return c, nil
}

func (r *fakeClientRepo) GetByTaxID(_ context.Context, org domain.OrganizationID, taxID string) (*domain.Client, error) {
	for _, c := range r.clients {
		if c.OrganizationID == org && c.TaxID == taxID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeClientRepo) List(_ context.Context, org domain.OrganizationID, _ domain.ClientFilter) ([]*domain.Client, int, error) {
	var out []*domain.Client
	for _, c := range r.clients {
		if c.OrganizationID == org {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *fakeClientRepo) Update(_ context.Context, org domain.OrganizationID, id domain.ClientID, fields map[string]any) (*domain.Client, error) {
	c, _ := r.GetByID(context.Background(), org, id)
	if c == nil {
		return nil, nil
	}
	if name, ok := fields["name"].(string); ok {
		c.Name = name
	}
	if accID, ok := fields["assigned_accountant_id"].(uuid.UUID); ok {
		uid := domain.NewUserID(accID)
		c.AssignedAccountantID = &uid
	}
	return c, nil
}

func (r *fakeClientRepo) Deactivate(_ context.Context, org domain.OrganizationID, id domain.ClientID) (*domain.Client, error) {
	c, _ := r.GetByID(context.Background(), org, id)
	if c == nil {
		return nil, nil
	}
	c.IsActive = false
	return c, nil
}

func (r *fakeClientRepo) FindByTaxID(_ context.Context, org domain.OrganizationID, taxID string) (*domain.ClientMatch, error) {
	c, _ := r.GetByTaxID(context.Background(), org, taxID)
	if c == nil {
		return nil, nil
	}
	return &domain.ClientMatch{Client: *c}, nil
}

func (r *fakeClientRepo) FindByName(_ context.Context, _ domain.OrganizationID, _ string, threshold float64) ([]*domain.ClientMatch, error) {
	r.lastFuzzyTh = threshold
	return r.fuzzy, nil
}

type fakeMemberRepo struct {
	roles map[domain.UserID]string
}

func (r *fakeMemberRepo) Get(_ context.Context, org domain.OrganizationID, user domain.UserID) (*domain.Membership, error) {
	role, ok := r.roles[user]
	if !ok {
		return nil, nil
	}
	return &domain.Membership{OrganizationID: org, UserID: user, Role: role, IsActive: true}, nil
}

func (r *fakeMemberRepo) List(context.Context, domain.OrganizationID) ([]*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMemberRepo) CountActive(context.Context, domain.OrganizationID) (int, error) {
	return 0, nil
}
func (r *fakeMemberRepo) CountActiveAdmins(context.Context, domain.OrganizationID) (int, error) {
	return 0, nil
}
func (r *fakeMemberRepo) Create(context.Context, *domain.Membership) error { return nil }
func (r *fakeMemberRepo) Reactivate(context.Context, domain.OrganizationID, domain.UserID, string) (*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMemberRepo) Deactivate(context.Context, domain.OrganizationID, domain.UserID) (*domain.Membership, error) {
	return nil, nil
}
func (r *fakeMemberRepo) UpdateRole(context.Context, domain.OrganizationID, domain.UserID, string) (*domain.Membership, error) {
	return nil, nil
}

type fakeDocumentRepo struct {
	docs []*domain.Document
}

func (r *fakeDocumentRepo) Create(_ context.Context, d *domain.Document) error {
	r.docs = append(r.docs, d)
	return nil
}

func (r *fakeDocumentRepo) ListForClient(_ context.Context, org domain.OrganizationID, id domain.ClientID, _ domain.DocumentFilter) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range r.docs {
		if d.OrganizationID == org && d.ClientID != nil && *d.ClientID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) StatsForClient(context.Context, domain.OrganizationID, domain.ClientID) (*domain.DocumentStats, error) {
	return &domain.DocumentStats{ByType: map[string]int{}, ByStatus: map[string]int{}}, nil
}

func newTestService(clients *fakeClientRepo, members *fakeMemberRepo) *Service {
	if members == nil {
		members = &fakeMemberRepo{roles: map[domain.UserID]string{}}
	}
	return NewService(clients, members, &fakeDocumentRepo{}, zerolog.Nop())
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newFakeClientRepo(), nil)
	orgID := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	_, err := svc.Create(context.Background(), orgID, creator, CreateInput{TaxID: "12345678"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Mont Trade", TaxID: "12ab"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateDuplicateTaxID(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	orgID := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	first, err := svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Mont Trade", TaxID: "12345678"})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	_, err = svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Other", TaxID: "12345678"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateSameTaxIDAcrossOrganizations(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	creator := domain.NewUserID(uuid.New())

	_, err := svc.Create(context.Background(), domain.NewOrganizationID(uuid.New()), creator, CreateInput{Name: "A", TaxID: "12345678"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), domain.NewOrganizationID(uuid.New()), creator, CreateInput{Name: "B", TaxID: "12345678"})
	assert.NoError(t, err, "uniqueness is per organization")
}

func TestGetByIDTenantIsolation(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	orgA := domain.NewOrganizationID(uuid.New())
	orgB := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	c, err := svc.Create(context.Background(), orgA, creator, CreateInput{Name: "Mont Trade", TaxID: "12345678"})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), orgB, c.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "foreign org reads not-found, never the row")
}

func TestSearchPrefersExactTaxID(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	orgID := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	c, err := svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Mont Trade", TaxID: "12345678"})
	require.NoError(t, err)
	repo.fuzzy = []*domain.ClientMatch{{Client: *c, Confidence: 0.7}}

	matches, err := svc.Search(context.Background(), orgID, "12345678", "Mont Trade")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchTaxIDExact, matches[0].MatchType)
	assert.Equal(t, 1.0, matches[0].Confidence)
}

func TestSearchFallsBackToFuzzyName(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	orgID := domain.NewOrganizationID(uuid.New())

	repo.fuzzy = []*domain.ClientMatch{
		{Client: domain.Client{Name: "Mont Trade d.o.o."}, Confidence: 0.82},
		{Client: domain.Client{Name: "Montenegro Trading"}, Confidence: 0.64},
	}

	matches, err := svc.Search(context.Background(), orgID, "99999999", "Mont Trade")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, domain.MatchNameFuzzy, m.MatchType)
	}
	assert.Equal(t, DefaultFuzzyThreshold, repo.lastFuzzyTh)
}

func TestFindByNameDefaultThreshold(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)

	_, err := svc.FindByName(context.Background(), domain.NewOrganizationID(uuid.New()), "Mont", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultFuzzyThreshold, repo.lastFuzzyTh)

	_, err = svc.FindByName(context.Background(), domain.NewOrganizationID(uuid.New()), "Mont", 0.9)
	require.NoError(t, err)
	assert.Equal(t, 0.9, repo.lastFuzzyTh)
}

func TestAssignAccountantEligibility(t *testing.T) {
	repo := newFakeClientRepo()
	members := &fakeMemberRepo{roles: map[domain.UserID]string{}}
	svc := newTestService(repo, members)
	orgID := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	c, err := svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Mont Trade", TaxID: "12345678"})
	require.NoError(t, err)

	stranger := domain.NewUserID(uuid.New())
	_, err = svc.AssignAccountant(context.Background(), orgID, c.ID, stranger)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	viewer := domain.NewUserID(uuid.New())
	members.roles[viewer] = domain.RoleViewer
	_, err = svc.AssignAccountant(context.Background(), orgID, c.ID, viewer)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	accountant := domain.NewUserID(uuid.New())
	members.roles[accountant] = domain.RoleAccountant
	updated, err := svc.AssignAccountant(context.Background(), orgID, c.ID, accountant)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAccountantID)
	assert.Equal(t, accountant, *updated.AssignedAccountantID)
}

func TestDeleteIsSoft(t *testing.T) {
	repo := newFakeClientRepo()
	svc := newTestService(repo, nil)
	orgID := domain.NewOrganizationID(uuid.New())
	creator := domain.NewUserID(uuid.New())

	c, err := svc.Create(context.Background(), orgID, creator, CreateInput{Name: "Mont Trade", TaxID: "12345678"})
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)
	assert.Contains(t, repo.clients, c.ID, "row survives deactivation")
}
