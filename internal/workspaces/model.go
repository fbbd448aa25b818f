package workspaces

import "time"

// Workspace is a per-company container for contracts.
type Workspace struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant gives one user explicit access to one workspace. Non-admin actors
// only see workspaces they hold grants for.
type Grant struct {
	UserID      int64     `json:"user_id"`
	WorkspaceID int64     `json:"workspace_id"`
	GrantedBy   int64     `json:"granted_by"`
	GrantedAt   time.Time `json:"granted_at"`
}
