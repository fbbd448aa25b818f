package contracts

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactline/pactline/internal/audit"
	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

type mockRepository struct {
	contracts   map[int64]*Contract
	assignments map[[2]int64]*Assignment
	companies   map[int64]authz.Company
	workspaces  map[int64]authz.Workspace
	nextID      int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		contracts:   make(map[int64]*Contract),
		assignments: make(map[[2]int64]*Assignment),
		companies:   make(map[int64]authz.Company),
		workspaces:  make(map[int64]authz.Workspace),
		nextID:      1,
	}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters) ([]Contract, error) {
	allowed := make(map[int64]struct{}, len(filters.CompanyIDs))
	for _, id := range filters.CompanyIDs {
		allowed[id] = struct{}{}
	}
	var out []Contract
	for _, c := range m.contracts {
		if _, ok := allowed[c.CompanyID]; !ok {
			continue
		}
		if filters.WorkspaceID != 0 && c.WorkspaceID != 0 && c.WorkspaceID != filters.WorkspaceID {
			continue
		}
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, contract Contract) (*Contract, error) {
	contract.ID = m.nextID
	m.nextID++
	contract.CreatedAt = time.Now()
	contract.UpdatedAt = contract.CreatedAt
	m.contracts[contract.ID] = &contract
	copied := contract
	return &copied, nil
}

func (m *mockRepository) Update(ctx context.Context, contract Contract) (*Contract, error) {
	current, ok := m.contracts[contract.ID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	current.Title = contract.Title
	current.WorkspaceID = contract.WorkspaceID
	current.AllowedEditorIDs = contract.AllowedEditorIDs
	copied := *current
	return &copied, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	c, ok := m.contracts[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.contracts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.contracts, id)
	return nil
}

func (m *mockRepository) CreateAssignment(ctx context.Context, assignment Assignment) error {
	copied := assignment
	copied.Active = true
	m.assignments[[2]int64{assignment.ContractID, assignment.UserID}] = &copied
	return nil
}

func (m *mockRepository) RevokeAssignment(ctx context.Context, contractID, userID int64) error {
	a, ok := m.assignments[[2]int64{contractID, userID}]
	if !ok || !a.Active {
		return shared.ErrNotFound
	}
	a.Active = false
	now := time.Now()
	a.RevokedAt = &now
	return nil
}

func (m *mockRepository) ListAssignments(ctx context.Context, contractID int64) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.assignments {
		if a.ContractID == contractID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepository) FindActiveAssignment(ctx context.Context, contractID, userID int64) (*authz.Assignment, error) {
	a, ok := m.assignments[[2]int64{contractID, userID}]
	if !ok || !a.Active {
		return nil, nil
	}
	return &authz.Assignment{
		ContractID: a.ContractID,
		UserID:     a.UserID,
		GrantedBy:  a.GrantedBy,
		GrantedAt:  a.GrantedAt,
		Active:     a.Active,
	}, nil
}

func (m *mockRepository) ActiveAssignedContractIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for _, a := range m.assignments {
		if a.UserID == userID && a.Active {
			if _, ok := m.contracts[a.ContractID]; ok {
				ids = append(ids, a.ContractID)
			}
		}
	}
	return ids, nil
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

func (m *mockRepository) ActiveWorkspaces(ctx context.Context, companyID int64) ([]authz.Workspace, error) {
	var out []authz.Workspace
	for _, ws := range m.workspaces {
		if ws.CompanyID == companyID && ws.Active {
			out = append(out, ws)
		}
	}
	return out, nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Insert(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) Window(ctx context.Context, filters audit.TimelineFilters, limit, offset int) ([]audit.Entry, error) {
	return nil, nil
}

type recordingMetrics struct {
	decisions map[string][2]int
}

func (m *recordingMetrics) RecordDecision(operation string, allowed bool) {
	if m.decisions == nil {
		m.decisions = make(map[string][2]int)
	}
	counts := m.decisions[operation]
	if allowed {
		counts[0]++
	} else {
		counts[1]++
	}
	m.decisions[operation] = counts
}

func (m *recordingMetrics) denied(operation string) int {
	return m.decisions[operation][1]
}

func (m *recordingMetrics) allowed(operation string) int {
	return m.decisions[operation][0]
}

type recordingNotifier struct {
	shared [][3]int64
}

func (n *recordingNotifier) ContractShared(ctx context.Context, contractID, userID, grantedBy int64) error {
	n.shared = append(n.shared, [3]int64{contractID, userID, grantedBy})
	return nil
}

type fixture struct {
	repo     *mockRepository
	svc      *Service
	auditLog *recordingAudit
	notifier *recordingNotifier
	metrics  *recordingMetrics
}

func newFixture() *fixture {
	repo := newMockRepository()
	repo.companies[1] = authz.Company{ID: 1, Kind: authz.CompanyKindGroup, Active: true}
	repo.companies[2] = authz.Company{ID: 2, Kind: authz.CompanyKindSubsidiary, ParentCompanyID: 1, Active: true}
	repo.companies[3] = authz.Company{ID: 3, Kind: authz.CompanyKindGroup, Active: true}
	repo.workspaces[10] = authz.Workspace{ID: 10, CompanyID: 2, Active: true}
	repo.workspaces[11] = authz.Workspace{ID: 11, CompanyID: 2, Active: true}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := authz.NewEngine(repo, repo, repo, repo, logger)
	auditLog := &recordingAudit{}
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	svc := NewService(repo, engine, audit.NewService(auditLog), notifier, metrics, logger)
	return &fixture{repo: repo, svc: svc, auditLog: auditLog, notifier: notifier, metrics: metrics}
}

func (f *fixture) seedContract(id, companyID, workspaceID int64, status Status) *Contract {
	c := &Contract{
		ID:          id,
		Number:      "C-" + strconv.FormatInt(id, 10),
		Title:       "Contract",
		CompanyID:   companyID,
		WorkspaceID: workspaceID,
		Status:      status,
		CreatedBy:   1,
	}
	f.repo.contracts[id] = c
	if id >= f.repo.nextID {
		f.repo.nextID = id + 1
	}
	return c
}

func TestListScopedToAccessibleCompanies(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)
	f.seedContract(101, 3, 0, StatusActive)

	companyAdmin := authz.Actor{ID: 20, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	list, err := f.svc.List(context.Background(), companyAdmin, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(100), list[0].ID)

	sysAdmin := authz.Actor{ID: 1, Role: authz.RoleSystemAdmin, CompanyID: 1}
	list, err = f.svc.List(context.Background(), sysAdmin, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListFiltersWorkspacePinnedContracts(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 10, StatusActive)
	f.seedContract(101, 2, 11, StatusActive)
	f.seedContract(102, 2, 0, StatusActive)

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2, WorkspaceIDs: []int64{10}}
	list, err := f.svc.List(context.Background(), manager, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.NotEqual(t, int64(101), c.ID)
	}
}

func TestListSingleAssignmentShortCircuit(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)
	f.seedContract(101, 3, 0, StatusActive)

	outsider := authz.Actor{ID: 30, Role: authz.RoleViewer, CompanyID: 3}
	require.NoError(t, f.repo.CreateAssignment(context.Background(), Assignment{
		ContractID: 100, UserID: 30, GrantedBy: 1, GrantedAt: time.Now(),
	}))

	list, err := f.svc.List(context.Background(), outsider, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(100), list[0].ID)
}

func TestListAppliesSelectedScope(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 1, 0, StatusActive)
	f.seedContract(101, 2, 0, StatusActive)
	f.seedContract(102, 2, 10, StatusActive)
	f.seedContract(103, 2, 11, StatusActive)

	groupAdmin := authz.Actor{
		ID: 20, Role: authz.RoleGroupAdmin, CompanyID: 1, GroupID: 1,
		SelectedCompanyID: 2, SelectedWorkspaceID: 10,
	}
	list, err := f.svc.List(context.Background(), groupAdmin, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.Equal(t, int64(2), c.CompanyID)
		assert.NotEqual(t, int64(103), c.ID)
	}

	// An explicit query parameter wins over the session selection.
	list, err = f.svc.List(context.Background(), groupAdmin, ListQuery{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(100), list[0].ID)

	// Non-admin roles never pick up a selected scope.
	manager := authz.Actor{
		ID: 21, Role: authz.RoleContractManager, CompanyID: 2,
		WorkspaceIDs: []int64{10, 11}, SelectedCompanyID: 1,
	}
	list, err = f.svc.List(context.Background(), manager, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestDecisionOutcomesRecorded(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)

	outsider := authz.Actor{ID: 30, Role: authz.RoleViewer, CompanyID: 3}
	_, err := f.svc.Get(context.Background(), outsider, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, 1, f.metrics.denied("can_view"))

	admin := authz.Actor{ID: 20, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	_, err = f.svc.Get(context.Background(), admin, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.allowed("can_view"))

	viewer := authz.Actor{ID: 40, Role: authz.RoleViewer, CompanyID: 2}
	_, err = f.svc.Update(context.Background(), viewer, 100, Contract{Title: "Renamed"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, 1, f.metrics.denied("can_edit"))
}

func TestShareGrantsAndRevokeRemovesVisibility(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)

	admin := authz.Actor{ID: 20, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	outsider := authz.Actor{ID: 30, Role: authz.RoleViewer, CompanyID: 3}

	_, err := f.svc.Get(context.Background(), outsider, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, f.svc.Share(context.Background(), admin, 100, 30))
	got, err := f.svc.Get(context.Background(), outsider, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ID)

	require.Len(t, f.notifier.shared, 1)
	assert.Equal(t, [3]int64{100, 30, 20}, f.notifier.shared[0])

	require.NoError(t, f.svc.RevokeShare(context.Background(), admin, 100, 30))
	_, err = f.svc.Get(context.Background(), outsider, 100)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	actions := make([]string, 0, len(f.auditLog.entries))
	for _, e := range f.auditLog.entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, audit.ActionContractShared)
	assert.Contains(t, actions, audit.ActionShareRevoked)
}

func TestShareRequiresEditRights(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)

	viewer := authz.Actor{ID: 40, Role: authz.RoleViewer, CompanyID: 2}
	err := f.svc.Share(context.Background(), viewer, 100, 30)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	foreignAdmin := authz.Actor{ID: 41, Role: authz.RoleCompanyAdmin, CompanyID: 3}
	err = f.svc.Share(context.Background(), foreignAdmin, 100, 30)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestApproveGatingAndTransitions(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusActive)
	f.seedContract(101, 2, 0, StatusDraft)

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2}
	assert.ErrorIs(t, f.svc.Approve(context.Background(), manager, 100), shared.ErrForbidden)

	reviewer := authz.Actor{ID: 21, Role: authz.RoleLegalReviewer, CompanyID: 2}
	require.NoError(t, f.svc.Approve(context.Background(), reviewer, 100))
	assert.Equal(t, StatusApproved, f.repo.contracts[100].Status)

	err := f.svc.Approve(context.Background(), reviewer, 101)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAllowedEditorsNarrowsUpdate(t *testing.T) {
	f := newFixture()
	c := f.seedContract(100, 2, 0, StatusActive)
	c.AllowedEditorIDs = []int64{55}

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2}
	_, err := f.svc.Update(context.Background(), manager, 100, Contract{Title: "Renamed"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	member := authz.Actor{ID: 55, Role: authz.RoleContractManager, CompanyID: 2}
	updated, err := f.svc.Update(context.Background(), member, 100, Contract{Title: "Renamed", AllowedEditorIDs: []int64{55}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	admin := authz.Actor{ID: 21, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	_, err = f.svc.Update(context.Background(), admin, 100, Contract{Title: "Admin edit", AllowedEditorIDs: []int64{55}})
	require.NoError(t, err)
}

func TestCreateValidatesScopeAndWorkspace(t *testing.T) {
	f := newFixture()

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2, WorkspaceIDs: []int64{10}}
	created, err := f.svc.Create(context.Background(), manager, Contract{Title: "NDA", CompanyID: 2, WorkspaceID: 10})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, created.Status)
	assert.Equal(t, int64(20), created.CreatedBy)
	assert.NotEmpty(t, created.Number)

	_, err = f.svc.Create(context.Background(), manager, Contract{Title: "NDA", CompanyID: 3})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.Create(context.Background(), manager, Contract{Title: "NDA", CompanyID: 2, WorkspaceID: 11})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	viewer := authz.Actor{ID: 40, Role: authz.RoleViewer, CompanyID: 2}
	_, err = f.svc.Create(context.Background(), viewer, Contract{Title: "NDA", CompanyID: 2})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteRequiresCapability(t *testing.T) {
	f := newFixture()
	f.seedContract(100, 2, 0, StatusDraft)

	manager := authz.Actor{ID: 20, Role: authz.RoleContractManager, CompanyID: 2}
	assert.ErrorIs(t, f.svc.Delete(context.Background(), manager, 100), shared.ErrForbidden)

	admin := authz.Actor{ID: 21, Role: authz.RoleCompanyAdmin, CompanyID: 2}
	require.NoError(t, f.svc.Delete(context.Background(), admin, 100))
	_, err := f.svc.Get(context.Background(), admin, 100)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
