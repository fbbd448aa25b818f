package workspaces

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
)

type mockRepository struct {
	workspaces map[int64]*Workspace
	grants     map[[2]int64]Grant
	companies  map[int64]authz.Company
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		workspaces: make(map[int64]*Workspace),
		grants:     make(map[[2]int64]Grant),
		companies:  make(map[int64]authz.Company),
		nextID:     1,
	}
}

func (m *mockRepository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]Workspace, error) {
	var out []Workspace
	for _, ws := range m.workspaces {
		if ws.CompanyID != companyID {
			continue
		}
		if activeOnly && !ws.IsActive {
			continue
		}
		out = append(out, *ws)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Workspace, error) {
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *ws
	return &copied, nil
}

func (m *mockRepository) Create(ctx context.Context, workspace Workspace) (*Workspace, error) {
	workspace.ID = m.nextID
	m.nextID++
	workspace.IsActive = true
	m.workspaces[workspace.ID] = &workspace
	return &workspace, nil
}

func (m *mockRepository) Archive(ctx context.Context, id int64) error {
	ws, ok := m.workspaces[id]
	if !ok {
		return shared.ErrNotFound
	}
	ws.IsActive = false
	return nil
}

func (m *mockRepository) GrantedWorkspaceIDs(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	for key := range m.grants {
		if key[0] == userID {
			out = append(out, key[1])
		}
	}
	return out, nil
}

func (m *mockRepository) Grant(ctx context.Context, userID, workspaceID, grantedBy int64) error {
	m.grants[[2]int64{userID, workspaceID}] = Grant{UserID: userID, WorkspaceID: workspaceID, GrantedBy: grantedBy, GrantedAt: time.Now()}
	return nil
}

func (m *mockRepository) Revoke(ctx context.Context, userID, workspaceID int64) error {
	key := [2]int64{userID, workspaceID}
	if _, ok := m.grants[key]; !ok {
		return shared.ErrNotFound
	}
	delete(m.grants, key)
	return nil
}

func (m *mockRepository) ActiveWorkspaces(ctx context.Context, companyID int64) ([]authz.Workspace, error) {
	list, _ := m.ListByCompany(ctx, companyID, true)
	out := make([]authz.Workspace, 0, len(list))
	for _, ws := range list {
		out = append(out, authz.Workspace{ID: ws.ID, CompanyID: ws.CompanyID, Active: true})
	}
	return out, nil
}

func (m *mockRepository) ActiveCompanies(ctx context.Context) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range m.companies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) ActiveSubsidiaries(ctx context.Context, parentID int64) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range m.companies {
		if c.Active && c.Kind == authz.CompanyKindSubsidiary && c.ParentCompanyID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) FindCompany(ctx context.Context, id int64) (*authz.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func newWorkspaceService(repo *mockRepository) *Service {
	engine := authz.NewEngine(repo, repo, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(repo, engine)
}

func seedTenancy(repo *mockRepository) {
	repo.companies[1] = authz.Company{ID: 1, Kind: authz.CompanyKindGroup, Active: true}
	repo.companies[2] = authz.Company{ID: 2, Kind: authz.CompanyKindSubsidiary, ParentCompanyID: 1, Active: true}
	repo.workspaces[100] = &Workspace{ID: 100, CompanyID: 2, Name: "Procurement", IsActive: true}
	repo.workspaces[101] = &Workspace{ID: 101, CompanyID: 2, Name: "Legal", IsActive: true}
	repo.nextID = 102
}

func TestListAccessibleIntersectsGrants(t *testing.T) {
	repo := newMockRepository()
	seedTenancy(repo)
	svc := newWorkspaceService(repo)

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2, WorkspaceIDs: []int64{101}}
	list, err := svc.ListAccessible(context.Background(), manager, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(101), list[0].ID)

	groupAdmin := authz.Actor{ID: 21, Role: authz.RoleGroupAdmin, CompanyID: 1}
	list, err = svc.ListAccessible(context.Background(), groupAdmin, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGrantRequiresManageWorkspaces(t *testing.T) {
	repo := newMockRepository()
	seedTenancy(repo)
	svc := newWorkspaceService(repo)

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2}
	err := svc.Grant(context.Background(), manager, 30, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	admin := authz.Actor{ID: 21, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	require.NoError(t, svc.Grant(context.Background(), admin, 30, 100))

	ids, err := repo.GrantedWorkspaceIDs(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, ids)
}

func TestGrantOutsideCompanyForbidden(t *testing.T) {
	repo := newMockRepository()
	seedTenancy(repo)
	repo.companies[3] = authz.Company{ID: 3, Kind: authz.CompanyKindGroup, Active: true}
	svc := newWorkspaceService(repo)

	foreignAdmin := authz.Actor{ID: 22, Role: authz.RoleCompanyAdmin, CompanyID: 3}
	err := svc.Grant(context.Background(), foreignAdmin, 30, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateAndArchiveWorkspace(t *testing.T) {
	repo := newMockRepository()
	seedTenancy(repo)
	svc := newWorkspaceService(repo)

	admin := authz.Actor{ID: 21, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	ws, err := svc.Create(context.Background(), admin, Workspace{CompanyID: 2, Name: "Sales"})
	require.NoError(t, err)
	assert.True(t, ws.IsActive)

	require.NoError(t, svc.Archive(context.Background(), admin, ws.ID))
	assert.False(t, repo.workspaces[ws.ID].IsActive)
}
