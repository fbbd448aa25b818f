package authz

import (
	"context"
	"fmt"
)

// AccessibleCompanies returns the set of company IDs the actor may operate
// in. The result is a point-in-time snapshot and must not be cached across
// requests; admins can edit the hierarchy concurrently.
//
// system-admin sees every active company. A group-admin whose own company is
// a group sees itself plus its active subsidiaries. Every other combination,
// including a group-admin attached to a non-group company, collapses to the
// actor's own company.
func (e *Engine) AccessibleCompanies(ctx context.Context, actor Actor) ([]int64, error) {
	switch actor.Role {
	case RoleSystemAdmin:
		all, err := e.companies.ActiveCompanies(ctx)
		if err != nil {
			return nil, fmt.Errorf("authz: list active companies: %w", err)
		}
		ids := make([]int64, 0, len(all))
		for _, c := range all {
			ids = append(ids, c.ID)
		}
		if !containsID(ids, actor.CompanyID) {
			ids = append(ids, actor.CompanyID)
		}
		return ids, nil

	case RoleGroupAdmin:
		own, err := e.companies.FindCompany(ctx, actor.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("authz: find company %d: %w", actor.CompanyID, err)
		}
		// Role/company mismatch: a group-admin parked on a subsidiary gets
		// no transitive reach.
		if own == nil || own.Kind != CompanyKindGroup {
			return []int64{actor.CompanyID}, nil
		}
		subs, err := e.companies.ActiveSubsidiaries(ctx, own.ID)
		if err != nil {
			return nil, fmt.Errorf("authz: list subsidiaries of %d: %w", own.ID, err)
		}
		ids := make([]int64, 0, len(subs)+1)
		ids = append(ids, actor.CompanyID)
		for _, c := range subs {
			if c.ID != actor.CompanyID {
				ids = append(ids, c.ID)
			}
		}
		return ids, nil

	default:
		// Includes unknown roles: the accessible set never shrinks below the
		// actor's own company.
		return []int64{actor.CompanyID}, nil
	}
}

// CanAccessCompany reports whether the company is in the actor's accessible
// set. Store failures deny.
func (e *Engine) CanAccessCompany(ctx context.Context, actor Actor, companyID int64) bool {
	ids, err := e.AccessibleCompanies(ctx, actor)
	if err != nil {
		e.warn("accessible companies", err)
		return false
	}
	return containsID(ids, companyID)
}
