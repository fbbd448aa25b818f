package users

import (
	"context"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
)

// Service wraps user account queries behind capability checks.
type Service struct {
	repo   *Repository
	engine *authz.Engine
}

// NewService constructs a Service.
func NewService(repo *Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// Get returns a user record. Requires manage-users over an accessible company.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*User, error) {
	if !authz.HasCapability(actor, authz.CapManageUsers) {
		return nil, shared.ErrForbidden
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanAccessCompany(ctx, actor, user.CompanyID) {
		return nil, shared.ErrForbidden
	}
	return user, nil
}

// ListByCompany returns the active users of a company the actor can manage.
func (s *Service) ListByCompany(ctx context.Context, actor authz.Actor, companyID int64) ([]User, error) {
	if !authz.HasCapability(actor, authz.CapManageUsers) {
		return nil, shared.ErrForbidden
	}
	if !s.engine.CanAccessCompany(ctx, actor, companyID) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListByCompany(ctx, companyID)
}
