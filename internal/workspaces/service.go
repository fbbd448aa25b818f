package workspaces

import (
	"context"
	"fmt"
	"strings"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Service wraps workspace and grant management behind the engine.
type Service struct {
	repo   Repository
	engine *authz.Engine
}

// NewService constructs a Service.
func NewService(repo Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// ListAccessible returns the workspaces of a company the actor can reach,
// already filtered down to the actor's accessible workspace set.
func (s *Service) ListAccessible(ctx context.Context, actor authz.Actor, companyID int64) ([]Workspace, error) {
	ids, err := s.engine.AccessibleWorkspaces(ctx, actor, companyID)
	if err != nil {
		return nil, shared.ErrForbidden
	}
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := s.repo.ListByCompany(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	var out []Workspace
	for _, ws := range all {
		if _, ok := allowed[ws.ID]; ok {
			out = append(out, ws)
		}
	}
	return out, nil
}

// Create adds a workspace to a company. Requires manage-workspaces over an
// accessible company.
func (s *Service) Create(ctx context.Context, actor authz.Actor, workspace Workspace) (*Workspace, error) {
	if !authz.HasCapability(actor, authz.CapManageWorkspaces) {
		return nil, shared.ErrForbidden
	}
	if !s.engine.CanAccessCompany(ctx, actor, workspace.CompanyID) {
		return nil, shared.ErrForbidden
	}
	workspace.Name = strings.TrimSpace(workspace.Name)
	if workspace.Name == "" {
		return nil, fmt.Errorf("%w: workspace name required", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, workspace)
}

// Archive deactivates a workspace.
func (s *Service) Archive(ctx context.Context, actor authz.Actor, id int64) error {
	ws, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !authz.HasCapability(actor, authz.CapManageWorkspaces) || !s.engine.CanAccessCompany(ctx, actor, ws.CompanyID) {
		return shared.ErrForbidden
	}
	return s.repo.Archive(ctx, id)
}

// Grant gives a user explicit access to a workspace.
func (s *Service) Grant(ctx context.Context, actor authz.Actor, userID, workspaceID int64) error {
	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !authz.HasCapability(actor, authz.CapManageWorkspaces) || !s.engine.CanAccessCompany(ctx, actor, ws.CompanyID) {
		return shared.ErrForbidden
	}
	return s.repo.Grant(ctx, userID, workspaceID, actor.ID)
}

// Revoke removes a user's explicit workspace access.
func (s *Service) Revoke(ctx context.Context, actor authz.Actor, userID, workspaceID int64) error {
	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !authz.HasCapability(actor, authz.CapManageWorkspaces) || !s.engine.CanAccessCompany(ctx, actor, ws.CompanyID) {
		return shared.ErrForbidden
	}
	return s.repo.Revoke(ctx, userID, workspaceID)
}
