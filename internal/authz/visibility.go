package authz

import "context"

// CanView decides read access to a contract. Hierarchy access is tried
// first; when the actor sits outside the contract's company or workspace the
// per-contract override (assignment grant) is the only remaining path.
func (e *Engine) CanView(ctx context.Context, actor Actor, contract Contract) bool {
	if !HasCapability(actor, CapViewContract) {
		return false
	}
	if contract.CompanyID == 0 {
		return false
	}
	companies, err := e.AccessibleCompanies(ctx, actor)
	if err != nil {
		e.warn("can view: accessible companies", err)
		return false
	}
	if !containsID(companies, contract.CompanyID) {
		return e.overrideGranted(ctx, actor, contract)
	}
	if contract.WorkspaceID != 0 {
		workspaces, err := e.AccessibleWorkspaces(ctx, actor, contract.CompanyID)
		if err != nil {
			e.warn("can view: accessible workspaces", err)
			return false
		}
		if !containsID(workspaces, contract.WorkspaceID) {
			return e.overrideGranted(ctx, actor, contract)
		}
	}
	return true
}

// CanEdit decides write access. The allow-list, when non-empty, strictly
// narrows company-wide edit rights to its members plus admin-tier roles; the
// override grant never applies to edits for company-external actors.
//
// Edit deliberately does not re-check workspace membership the way view
// does; company membership suffices. Current behavior, kept as-is pending
// product clarification.
func (e *Engine) CanEdit(ctx context.Context, actor Actor, contract Contract) bool {
	if !HasCapability(actor, CapEditContract) {
		return false
	}
	if contract.CompanyID == 0 {
		return false
	}
	companies, err := e.AccessibleCompanies(ctx, actor)
	if err != nil {
		e.warn("can edit: accessible companies", err)
		return false
	}
	if !containsID(companies, contract.CompanyID) {
		return false
	}
	if len(contract.AllowedEditorIDs) > 0 {
		return containsID(contract.AllowedEditorIDs, actor.ID) || actor.Role.AdminTier()
	}
	switch actor.Role {
	case RoleSystemAdmin, RoleGroupAdmin, RoleCompanyAdmin, RoleContractManager, RoleLegalReviewer:
		return true
	}
	return false
}

// CanApprove decides approval rights: capability plus company membership.
// No workspace check and no override; the most conservative rule.
func (e *Engine) CanApprove(ctx context.Context, actor Actor, contract Contract) bool {
	return e.companyGated(ctx, actor, contract, CapApproveContract, "can approve")
}

// CanDelete decides deletion rights: capability plus company membership.
func (e *Engine) CanDelete(ctx context.Context, actor Actor, contract Contract) bool {
	return e.companyGated(ctx, actor, contract, CapDeleteContract, "can delete")
}

func (e *Engine) companyGated(ctx context.Context, actor Actor, contract Contract, cap Capability, op string) bool {
	if !HasCapability(actor, cap) {
		return false
	}
	if contract.CompanyID == 0 {
		return false
	}
	companies, err := e.AccessibleCompanies(ctx, actor)
	if err != nil {
		e.warn(op+": accessible companies", err)
		return false
	}
	return containsID(companies, contract.CompanyID)
}

// overrideGranted checks the per-contract escape hatch. The Assignment
// relation is authoritative; the legacy assignee array is consulted only
// when no assignment lookup is possible or no active row exists. Absence in
// both sources denies.
func (e *Engine) overrideGranted(ctx context.Context, actor Actor, contract Contract) bool {
	if e.assignments != nil {
		assignment, err := e.assignments.FindActiveAssignment(ctx, contract.ID, actor.ID)
		if err != nil {
			e.warn("override: find assignment", err)
			return containsID(contract.LegacyAssigneeIDs, actor.ID)
		}
		if assignment != nil && assignment.Active {
			return true
		}
	}
	return containsID(contract.LegacyAssigneeIDs, actor.ID)
}
