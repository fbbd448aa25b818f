package contracts

import (
	"time"

	"github.com/pactline/pactline/internal/authz"
)

// Status is the contract lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// statusTransitions lists the allowed forward moves. Archiving is allowed
// from any non-archived state and handled separately.
var statusTransitions = map[Status]Status{
	StatusDraft:  StatusActive,
	StatusActive: StatusApproved,
}

// Known reports whether the status is a member of the closed enum.
func (s Status) Known() bool {
	switch s {
	case StatusDraft, StatusActive, StatusApproved, StatusArchived:
		return true
	}
	return false
}

// Contract is a contract record. WorkspaceID zero means the contract is not
// pinned to a workspace and is visible at company level.
type Contract struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	CompanyID   int64     `json:"company_id"`
	WorkspaceID int64     `json:"workspace_id,omitempty"`
	Status      Status    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	// AllowedEditorIDs narrows edit rights when non-empty.
	AllowedEditorIDs []int64 `json:"allowed_editor_ids,omitempty"`
	// LegacyAssigneeIDs is the deprecated denormalized assignee array kept
	// for records that predate the assignment relation. Read-only.
	LegacyAssigneeIDs []int64   `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Snapshot converts the record into the shape the decision engine evaluates.
func (c Contract) Snapshot() authz.Contract {
	return authz.Contract{
		ID:                c.ID,
		CompanyID:         c.CompanyID,
		WorkspaceID:       c.WorkspaceID,
		CreatedBy:         c.CreatedBy,
		AllowedEditorIDs:  c.AllowedEditorIDs,
		LegacyAssigneeIDs: c.LegacyAssigneeIDs,
	}
}

// Assignment is a per-contract visibility grant. Revoked rows are retained
// with Active false for the audit trail.
type Assignment struct {
	ID         int64      `json:"id"`
	ContractID int64      `json:"contract_id"`
	UserID     int64      `json:"user_id"`
	GrantedBy  int64      `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	Active     bool       `json:"active"`
}

// ListFilters narrows the contract listing. CompanyIDs is populated by the
// service from the actor's accessible set, never from request input.
type ListFilters struct {
	CompanyIDs  []int64
	WorkspaceID int64
	Status      Status
}
