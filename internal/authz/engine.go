package authz

import (
	"context"
	"log/slog"
)

// CompanyStore supplies point-in-time company hierarchy snapshots.
type CompanyStore interface {
	ActiveCompanies(ctx context.Context) ([]Company, error)
	ActiveSubsidiaries(ctx context.Context, parentID int64) ([]Company, error)
	FindCompany(ctx context.Context, id int64) (*Company, error)
}

// WorkspaceStore supplies active workspaces per company.
type WorkspaceStore interface {
	ActiveWorkspaces(ctx context.Context, companyID int64) ([]Workspace, error)
}

// AssignmentStore resolves the per-contract override grants. FindActiveAssignment
// returns nil without error when no active row exists.
type AssignmentStore interface {
	FindActiveAssignment(ctx context.Context, contractID, userID int64) (*Assignment, error)
}

// ContractStore is consulted only by the single-contract scoping helper.
type ContractStore interface {
	ActiveAssignedContractIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Engine composes the resolvers over injected stores. It holds no mutable
// state; every call is a fresh computation, so one Engine serves all
// concurrent requests.
type Engine struct {
	companies   CompanyStore
	workspaces  WorkspaceStore
	assignments AssignmentStore
	contracts   ContractStore
	logger      *slog.Logger
}

// NewEngine constructs the resolution engine.
func NewEngine(companies CompanyStore, workspaces WorkspaceStore, assignments AssignmentStore, contracts ContractStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		companies:   companies,
		workspaces:  workspaces,
		assignments: assignments,
		contracts:   contracts,
		logger:      logger,
	}
}

func (e *Engine) warn(msg string, err error) {
	e.logger.Warn(msg, slog.Any("error", err))
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
