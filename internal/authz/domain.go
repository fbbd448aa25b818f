// Package authz implements the visibility resolution engine for the
// contract platform: the role capability matrix, the tenant hierarchy
// resolver, workspace accessibility and the per-contract visibility
// decisions. Every predicate is a stateless computation over a fresh
// snapshot of company, workspace and assignment records, so the engine is
// safe to invoke from arbitrarily many concurrent requests without locking.
//
// Any collaborator failure, malformed record or unknown enum value resolves
// to deny. Decisions never explain themselves to the caller; a false result
// surfaces as a generic forbidden outcome.
package authz

import "time"

// Actor is the authenticated principal evaluated for an access decision.
// It is immutable for the duration of one resolution.
type Actor struct {
	ID        int64
	Role      Role
	CompanyID int64
	// GroupID is set when the actor's company belongs to a group. Zero when
	// the actor sits outside any group.
	GroupID int64
	// SelectedCompanyID and SelectedWorkspaceID carry the scope a
	// multi-company admin has picked in the UI. They narrow list queries
	// only and never widen decision results.
	SelectedCompanyID   int64
	SelectedWorkspaceID int64
	// WorkspaceIDs holds the workspaces explicitly granted to the actor.
	WorkspaceIDs []int64
}

// EffectiveCompanyID returns the company the actor is currently operating
// in. The selected override applies to admin-tier roles only.
func (a Actor) EffectiveCompanyID() int64 {
	if a.SelectedCompanyID != 0 && a.Role.AdminTier() {
		return a.SelectedCompanyID
	}
	return a.CompanyID
}

// CompanyKind distinguishes group companies from their subsidiaries.
type CompanyKind string

const (
	CompanyKindGroup      CompanyKind = "group"
	CompanyKindSubsidiary CompanyKind = "subsidiary"
)

// Company is the hierarchy snapshot consumed by the resolvers. A subsidiary
// always carries the ID of its owning group company.
type Company struct {
	ID              int64
	Kind            CompanyKind
	ParentCompanyID int64
	Active          bool
}

// Workspace is a per-company contract workspace.
type Workspace struct {
	ID        int64
	CompanyID int64
	Active    bool
}

// Contract is the fully loaded record the visibility predicates evaluate.
// CompanyID zero means the record is malformed and every decision denies.
type Contract struct {
	ID        int64
	CompanyID int64
	// WorkspaceID is zero when the contract is not pinned to a workspace.
	WorkspaceID int64
	CreatedBy   int64
	// AllowedEditorIDs narrows edit rights when non-empty. It never widens
	// rights for actors outside the owning company.
	AllowedEditorIDs []int64
	// LegacyAssigneeIDs is the deprecated denormalized assignee array. The
	// Assignment relation is authoritative; this is consulted only when no
	// assignment lookup is possible or none is found.
	LegacyAssigneeIDs []int64
}

// Assignment is an explicit per-contract grant of visibility to one actor,
// independent of the tenant hierarchy. Revoked rows stay on record with
// Active false and grant nothing.
type Assignment struct {
	ContractID int64
	UserID     int64
	GrantedBy  int64
	GrantedAt  time.Time
	Active     bool
}
