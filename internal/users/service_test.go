package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
)

type stubCompanies struct {
	companies map[int64]authz.Company
}

func (s *stubCompanies) ActiveCompanies(ctx context.Context) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range s.companies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCompanies) ActiveSubsidiaries(ctx context.Context, parentID int64) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range s.companies {
		if c.Active && c.Kind == authz.CompanyKindSubsidiary && c.ParentCompanyID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCompanies) FindCompany(ctx context.Context, id int64) (*authz.Company, error) {
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type stubWorkspaces struct{}

func (stubWorkspaces) ActiveWorkspaces(ctx context.Context, companyID int64) ([]authz.Workspace, error) {
	return nil, nil
}

func TestListByCompanyGating(t *testing.T) {
	companies := &stubCompanies{companies: map[int64]authz.Company{
		1: {ID: 1, Kind: authz.CompanyKindGroup, Active: true},
		2: {ID: 2, Kind: authz.CompanyKindSubsidiary, ParentCompanyID: 1, Active: true},
		3: {ID: 3, Kind: authz.CompanyKindGroup, Active: true},
	}}
	engine := authz.NewEngine(companies, stubWorkspaces{}, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewService(nil, engine)

	manager := authz.Actor{ID: 5, Role: authz.RoleContractManager, CompanyID: 2}
	_, err := svc.ListByCompany(context.Background(), manager, 2)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	groupAdmin := authz.Actor{ID: 6, Role: authz.RoleGroupAdmin, CompanyID: 1}
	_, err = svc.ListByCompany(context.Background(), groupAdmin, 3)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
