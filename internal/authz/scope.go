package authz

import "context"

// LimitedToSingleContract reports whether the actor's set of actively
// assigned contracts has exactly one member. List endpoints short-circuit to
// that single contract instead of running the full hierarchy-scoped query.
// Store failures resolve to "not limited" so the caller falls back to the
// normal scoped query.
func (e *Engine) LimitedToSingleContract(ctx context.Context, actor Actor) (int64, bool) {
	if e.contracts == nil {
		return 0, false
	}
	ids, err := e.contracts.ActiveAssignedContractIDs(ctx, actor.ID)
	if err != nil {
		e.warn("single contract scope", err)
		return 0, false
	}
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

// Scoped memoizes company and workspace set resolution for the lifetime of a
// single inbound operation. It must never outlive the request that created
// it and is not safe for concurrent use; the hierarchy can change between
// requests, so each operation gets a fresh Scoped.
type Scoped struct {
	engine *Engine
	actor  Actor

	companiesLoaded bool
	companies       []int64
	companiesErr    error

	workspaces map[int64][]int64
}

// Scoped returns a per-request resolver for the actor.
func (e *Engine) Scoped(actor Actor) *Scoped {
	return &Scoped{engine: e, actor: actor, workspaces: make(map[int64][]int64)}
}

// Actor returns the principal this resolver was built for.
func (s *Scoped) Actor() Actor {
	return s.actor
}

// AccessibleCompanies resolves and memoizes the actor's company set.
func (s *Scoped) AccessibleCompanies(ctx context.Context) ([]int64, error) {
	if !s.companiesLoaded {
		s.companies, s.companiesErr = s.engine.AccessibleCompanies(ctx, s.actor)
		s.companiesLoaded = true
	}
	return s.companies, s.companiesErr
}

// AccessibleWorkspaces resolves and memoizes the workspace set per company.
func (s *Scoped) AccessibleWorkspaces(ctx context.Context, companyID int64) ([]int64, error) {
	if ids, ok := s.workspaces[companyID]; ok {
		return ids, nil
	}
	ids, err := s.engine.AccessibleWorkspaces(ctx, s.actor, companyID)
	if err != nil {
		return nil, err
	}
	s.workspaces[companyID] = ids
	return ids, nil
}

// CanView mirrors Engine.CanView using the memoized sets.
func (s *Scoped) CanView(ctx context.Context, contract Contract) bool {
	if !HasCapability(s.actor, CapViewContract) {
		return false
	}
	if contract.CompanyID == 0 {
		return false
	}
	companies, err := s.AccessibleCompanies(ctx)
	if err != nil {
		s.engine.warn("scoped can view: accessible companies", err)
		return false
	}
	if !containsID(companies, contract.CompanyID) {
		return s.engine.overrideGranted(ctx, s.actor, contract)
	}
	if contract.WorkspaceID != 0 {
		workspaces, err := s.AccessibleWorkspaces(ctx, contract.CompanyID)
		if err != nil {
			s.engine.warn("scoped can view: accessible workspaces", err)
			return false
		}
		if !containsID(workspaces, contract.WorkspaceID) {
			return s.engine.overrideGranted(ctx, s.actor, contract)
		}
	}
	return true
}
