package authz

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// stubStores backs the engine with in-memory records plus error injection,
// shared by the resolver tests in this package.
type stubStores struct {
	companies   map[int64]Company
	workspaces  map[int64]Workspace
	assignments []Assignment
	assigned    map[int64][]int64

	companiesErr    error
	subsidiariesErr error
	findCompanyErr  error
	workspacesErr   error
	assignmentErr   error
	assignedErr     error

	assignmentCalls int
}

func newStubStores() *stubStores {
	return &stubStores{
		companies:  make(map[int64]Company),
		workspaces: make(map[int64]Workspace),
		assigned:   make(map[int64][]int64),
	}
}

func (s *stubStores) ActiveCompanies(ctx context.Context) ([]Company, error) {
	if s.companiesErr != nil {
		return nil, s.companiesErr
	}
	var out []Company
	for _, c := range s.companies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStores) ActiveSubsidiaries(ctx context.Context, parentID int64) ([]Company, error) {
	if s.subsidiariesErr != nil {
		return nil, s.subsidiariesErr
	}
	var out []Company
	for _, c := range s.companies {
		if c.Active && c.Kind == CompanyKindSubsidiary && c.ParentCompanyID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStores) FindCompany(ctx context.Context, id int64) (*Company, error) {
	if s.findCompanyErr != nil {
		return nil, s.findCompanyErr
	}
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *stubStores) ActiveWorkspaces(ctx context.Context, companyID int64) ([]Workspace, error) {
	if s.workspacesErr != nil {
		return nil, s.workspacesErr
	}
	var out []Workspace
	for _, ws := range s.workspaces {
		if ws.Active && ws.CompanyID == companyID {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (s *stubStores) FindActiveAssignment(ctx context.Context, contractID, userID int64) (*Assignment, error) {
	s.assignmentCalls++
	if s.assignmentErr != nil {
		return nil, s.assignmentErr
	}
	for _, a := range s.assignments {
		if a.ContractID == contractID && a.UserID == userID && a.Active {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *stubStores) ActiveAssignedContractIDs(ctx context.Context, userID int64) ([]int64, error) {
	if s.assignedErr != nil {
		return nil, s.assignedErr
	}
	return s.assigned[userID], nil
}

func newTestEngine(t *testing.T, stores *stubStores) *Engine {
	t.Helper()
	return NewEngine(stores, stores, stores, stores, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
