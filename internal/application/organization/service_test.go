package organization

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

type fakeOrgRepo struct {
	orgs       map[domain.OrganizationID]*domain.Organization
	deleted    []domain.OrganizationID
	failCreate error
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: map[domain.OrganizationID]*domain.Organization{}}
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.Organization) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	if org.ID.UUID == (uuid.UUID{}) {
		org.ID = domain.NewOrganizationID(uuid.New())
	}
	r.orgs[org.ID] = org
	return nil
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	return r.orgs[id], nil
}

func (r *fakeOrgRepo) GetByEmail(_ context.Context, email string) (*domain.Organization, error) {
	for _, o := range r.orgs {
		if o.Email == email {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrgRepo) Update(_ context.Context, id domain.OrganizationID, fields map[string]any) (*domain.Organization, error) {
	o := r.orgs[id]
	if o == nil {
		return nil, nil
	}
	if name, ok := fields["name"].(string); ok {
		o.Name = name
	}
	return o, nil
}

func (r *fakeOrgRepo) Delete(_ context.Context, id domain.OrganizationID) error {
	delete(r.orgs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeOrgRepo) ListForUser(_ context.Context, _ domain.UserID) ([]*domain.OrganizationWithRole, error) {
	return nil, nil
}

type memberKey struct {
	org  domain.OrganizationID
	user domain.UserID
}

type fakeMemberRepo struct {
	members    map[memberKey]*domain.Membership
	failCreate error
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: map[memberKey]*domain.Membership{}}
}

func (r *fakeMemberRepo) Get(_ context.Context, org domain.OrganizationID, user domain.UserID) (*domain.Membership, error) {
	return r.members[memberKey{org, user}], nil
}

func (r *fakeMemberRepo) List(_ context.Context, org domain.OrganizationID) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for _, m := range r.members {
		if m.OrganizationID == org && m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) CountActive(_ context.Context, org domain.OrganizationID) (int, error) {
	list, _ := r.List(context.Background(), org)
	return len(list), nil
}

func (r *fakeMemberRepo) CountActiveAdmins(_ context.Context, org domain.OrganizationID) (int, error) {
	n := 0
	for _, m := range r.members {
		if m.OrganizationID == org && m.IsActive && m.Role == domain.RoleOrgAdmin {
			n++
		}
	}
	return n, nil
}

func (r *fakeMemberRepo) Create(_ context.Context, m *domain.Membership) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.members[memberKey{m.OrganizationID, m.UserID}] = m
	return nil
}

func (r *fakeMemberRepo) Reactivate(_ context.Context, org domain.OrganizationID, user domain.UserID, role string) (*domain.Membership, error) {
	m := r.members[memberKey{org, user}]
	if m != nil {
		m.IsActive = true
		m.Role = role
	}
	return m, nil
}

func (r *fakeMemberRepo) Deactivate(_ context.Context, org domain.OrganizationID, user domain.UserID) (*domain.Membership, error) {
	m := r.members[memberKey{org, user}]
	if m != nil {
		m.IsActive = false
	}
	return m, nil
}

func (r *fakeMemberRepo) UpdateRole(_ context.Context, org domain.OrganizationID, user domain.UserID, role string) (*domain.Membership, error) {
	m := r.members[memberKey{org, user}]
	if m != nil {
		m.Role = role
	}
	return m, nil
}

type fakeQuotaReader struct {
	usage *domain.QuotaUsage
}

func (r *fakeQuotaReader) Usage(_ context.Context, _ domain.OrganizationID) (*domain.QuotaUsage, error) {
	return r.usage, nil
}

func newTestService(orgs *fakeOrgRepo, members *fakeMemberRepo) *Service {
	return NewService(orgs, members, &fakeQuotaReader{usage: &domain.QuotaUsage{}}, zerolog.Nop())
}

func TestCreateMakesCreatorAdmin(t *testing.T) {
	orgs := newFakeOrgRepo()
	members := newFakeMemberRepo()
	svc := newTestService(orgs, members)
	creator := domain.NewUserID(uuid.New())

	org, err := svc.Create(context.Background(), creator, CreateInput{Name: "Alfa d.o.o.", Email: "alfa@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierTrial, org.SubscriptionTier)
	require.NotNil(t, org.TrialEndsAt)

	m, _ := members.Get(context.Background(), org.ID, creator)
	require.NotNil(t, m)
	assert.Equal(t, domain.RoleOrgAdmin, m.Role)
	assert.True(t, m.IsActive)
}

func TestCreateRollsBackOnMembershipFailure(t *testing.T) {
	orgs := newFakeOrgRepo()
	members := newFakeMemberRepo()
	members.failCreate = errors.New("insert failed")
	svc := newTestService(orgs, members)

	_, err := svc.Create(context.Background(), domain.NewUserID(uuid.New()), CreateInput{Name: "Alfa", Email: "alfa@example.com"})
	require.Error(t, err)
	assert.Len(t, orgs.deleted, 1, "organization row must be compensated away")
	assert.Empty(t, orgs.orgs)
}

func TestCreateDuplicateEmail(t *testing.T) {
	orgs := newFakeOrgRepo()
	members := newFakeMemberRepo()
	svc := newTestService(orgs, members)
	creator := domain.NewUserID(uuid.New())

	_, err := svc.Create(context.Background(), creator, CreateInput{Name: "Alfa", Email: "alfa@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), creator, CreateInput{Name: "Beta", Email: "alfa@example.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateInvalidTaxID(t *testing.T) {
	svc := newTestService(newFakeOrgRepo(), newFakeMemberRepo())
	bad := "12ab"
	_, err := svc.Create(context.Background(), domain.NewUserID(uuid.New()), CreateInput{Name: "Alfa", Email: "a@b.me", TaxID: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAddMemberReactivatesInactive(t *testing.T) {
	orgs := newFakeOrgRepo()
	members := newFakeMemberRepo()
	svc := newTestService(orgs, members)
	orgID := domain.NewOrganizationID(uuid.New())
	userID := domain.NewUserID(uuid.New())

	members.members[memberKey{orgID, userID}] = &domain.Membership{
		OrganizationID: orgID, UserID: userID, Role: domain.RoleViewer, IsActive: false,
	}

	m, err := svc.AddMember(context.Background(), orgID, userID, domain.RoleAccountant)
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Equal(t, domain.RoleAccountant, m.Role)
}

func TestAddMemberAlreadyActive(t *testing.T) {
	members := newFakeMemberRepo()
	svc := newTestService(newFakeOrgRepo(), members)
	orgID := domain.NewOrganizationID(uuid.New())
	userID := domain.NewUserID(uuid.New())
	members.members[memberKey{orgID, userID}] = &domain.Membership{
		OrganizationID: orgID, UserID: userID, Role: domain.RoleViewer, IsActive: true,
	}

	_, err := svc.AddMember(context.Background(), orgID, userID, domain.RoleViewer)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAddMemberInvalidRole(t *testing.T) {
	svc := newTestService(newFakeOrgRepo(), newFakeMemberRepo())
	_, err := svc.AddMember(context.Background(), domain.NewOrganizationID(uuid.New()), domain.NewUserID(uuid.New()), "super_admin")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRemoveMemberLastAdmin(t *testing.T) {
	members := newFakeMemberRepo()
	svc := newTestService(newFakeOrgRepo(), members)
	orgID := domain.NewOrganizationID(uuid.New())
	admin := domain.NewUserID(uuid.New())
	members.members[memberKey{orgID, admin}] = &domain.Membership{
		OrganizationID: orgID, UserID: admin, Role: domain.RoleOrgAdmin, IsActive: true,
	}

	_, err := svc.RemoveMember(context.Background(), orgID, admin)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	other := domain.NewUserID(uuid.New())
	members.members[memberKey{orgID, other}] = &domain.Membership{
		OrganizationID: orgID, UserID: other, Role: domain.RoleOrgAdmin, IsActive: true,
	}
	m, err := svc.RemoveMember(context.Background(), orgID, admin)
	require.NoError(t, err)
	assert.False(t, m.IsActive)
}

func TestUpdateMemberRoleDemoteLastAdmin(t *testing.T) {
	members := newFakeMemberRepo()
	svc := newTestService(newFakeOrgRepo(), members)
	orgID := domain.NewOrganizationID(uuid.New())
	admin := domain.NewUserID(uuid.New())
	members.members[memberKey{orgID, admin}] = &domain.Membership{
		OrganizationID: orgID, UserID: admin, Role: domain.RoleOrgAdmin, IsActive: true,
	}

	_, err := svc.UpdateMemberRole(context.Background(), orgID, admin, domain.RoleViewer)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Keeping the admin role is not a demotion.
	_, err = svc.UpdateMemberRole(context.Background(), orgID, admin, domain.RoleOrgAdmin)
	assert.NoError(t, err)

	second := domain.NewUserID(uuid.New())
	members.members[memberKey{orgID, second}] = &domain.Membership{
		OrganizationID: orgID, UserID: second, Role: domain.RoleOrgAdmin, IsActive: true,
	}
	m, err := svc.UpdateMemberRole(context.Background(), orgID, admin, domain.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, m.Role)
}

func TestUpdateUnknownFieldsDropped(t *testing.T) {
	orgs := newFakeOrgRepo()
	svc := newTestService(orgs, newFakeMemberRepo())
	org, err := svc.Create(context.Background(), domain.NewUserID(uuid.New()), CreateInput{Name: "Alfa", Email: "a@b.me"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), org.ID, map[string]any{"subscription_tier": "enterprise"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "tier is not caller-updatable")

	updated, err := svc.Update(context.Background(), org.ID, map[string]any{"name": "Beta", "subscription_tier": "enterprise"})
	require.NoError(t, err)
	assert.Equal(t, "Beta", updated.Name)
	assert.Equal(t, domain.TierTrial, updated.SubscriptionTier)
}
