package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Service wraps company master data operations behind capability checks.
type Service struct {
	repo   Repository
	engine *authz.Engine
}

// NewService constructs a Service.
func NewService(repo Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// List returns the companies in the actor's accessible set.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Company, error) {
	accessible, err := s.engine.AccessibleCompanies(ctx, actor)
	if err != nil {
		return nil, shared.ErrForbidden
	}
	all, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]struct{}, len(accessible))
	for _, id := range accessible {
		allowed[id] = struct{}{}
	}
	var out []Company
	for _, c := range all {
		if _, ok := allowed[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get fetches a company in the actor's accessible set.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*Company, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	if !s.engine.CanAccessCompany(ctx, actor, id) {
		return nil, shared.ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new company. Requires manage-companies; a subsidiary
// must reference an active group-kind parent.
func (s *Service) Create(ctx context.Context, actor authz.Actor, company Company) (*Company, error) {
	if !authz.HasCapability(actor, authz.CapManageCompanies) {
		return nil, shared.ErrForbidden
	}
	company.Name = strings.TrimSpace(company.Name)
	if err := s.validate(ctx, company); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, company)
}

// Rename updates the company name.
func (s *Service) Rename(ctx context.Context, actor authz.Actor, id int64, name string) error {
	if !authz.HasCapability(actor, authz.CapManageCompanies) {
		return shared.ErrForbidden
	}
	if !s.engine.CanAccessCompany(ctx, actor, id) {
		return shared.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: company name required", httpx.ErrValidation)
	}
	return s.repo.Update(ctx, id, name)
}

// Archive deactivates a company.
func (s *Service) Archive(ctx context.Context, actor authz.Actor, id int64) error {
	if !authz.HasCapability(actor, authz.CapManageCompanies) {
		return shared.ErrForbidden
	}
	if !s.engine.CanAccessCompany(ctx, actor, id) {
		return shared.ErrForbidden
	}
	return s.repo.Archive(ctx, id)
}

func (s *Service) validate(ctx context.Context, company Company) error {
	if company.Name == "" {
		return fmt.Errorf("%w: company name required", httpx.ErrValidation)
	}
	switch company.Kind {
	case authz.CompanyKindGroup:
		if company.ParentCompanyID != 0 {
			return fmt.Errorf("%w: a group company cannot have a parent", httpx.ErrValidation)
		}
	case authz.CompanyKindSubsidiary:
		if company.ParentCompanyID == 0 {
			return fmt.Errorf("%w: a subsidiary requires a parent company", httpx.ErrValidation)
		}
		parent, err := s.repo.Get(ctx, company.ParentCompanyID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: parent company does not exist", httpx.ErrValidation)
			}
			return err
		}
		if parent.Kind != authz.CompanyKindGroup || !parent.IsActive {
			return fmt.Errorf("%w: parent must be an active group company", httpx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown company kind", httpx.ErrValidation)
	}
	return nil
}
