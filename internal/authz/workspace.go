package authz

import (
	"context"
	"fmt"
)

// AccessibleWorkspaces returns the workspace IDs the actor may use within
// the given company. An inaccessible company yields the empty set before any
// workspace-level logic runs.
//
// system-admin and group-admin see every active workspace of an accessible
// company; everyone else sees the intersection of their explicit grants with
// the company's active workspaces.
func (e *Engine) AccessibleWorkspaces(ctx context.Context, actor Actor, companyID int64) ([]int64, error) {
	companies, err := e.AccessibleCompanies(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !containsID(companies, companyID) {
		return nil, nil
	}

	active, err := e.workspaces.ActiveWorkspaces(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("authz: list workspaces of company %d: %w", companyID, err)
	}

	switch actor.Role {
	case RoleSystemAdmin, RoleGroupAdmin:
		ids := make([]int64, 0, len(active))
		for _, ws := range active {
			ids = append(ids, ws.ID)
		}
		return ids, nil
	default:
		granted := make(map[int64]struct{}, len(actor.WorkspaceIDs))
		for _, id := range actor.WorkspaceIDs {
			granted[id] = struct{}{}
		}
		var ids []int64
		for _, ws := range active {
			if _, ok := granted[ws.ID]; ok {
				ids = append(ids, ws.ID)
			}
		}
		return ids, nil
	}
}

// LimitedToSingleWorkspace reports whether the actor's effective context
// collapses to exactly one workspace. Admin-tier actors are never limited;
// list endpoints use this to auto-narrow queries without re-deriving the
// grant set.
func LimitedToSingleWorkspace(actor Actor) (int64, bool) {
	if actor.Role.AdminTier() {
		return 0, false
	}
	if len(actor.WorkspaceIDs) != 1 {
		return 0, false
	}
	return actor.WorkspaceIDs[0], true
}
