package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pactline/pactline/internal/audit"
	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Notifier delivers share notifications out of band. Failures are logged,
// never surfaced to the caller; the grant itself has already been committed.
type Notifier interface {
	ContractShared(ctx context.Context, contractID, userID, grantedBy int64) error
}

// DecisionRecorder counts access decision outcomes per operation.
// observability.Metrics satisfies it.
type DecisionRecorder interface {
	RecordDecision(operation string, allowed bool)
}

// ListQuery is the caller-supplied narrowing of a contract listing. It only
// ever narrows the actor's accessible scope, never widens it.
type ListQuery struct {
	CompanyID   int64
	WorkspaceID int64
	Status      Status
}

// Service wraps contract operations behind the decision engine.
type Service struct {
	repo     Repository
	engine   *authz.Engine
	audit    *audit.Service
	notifier Notifier
	metrics  DecisionRecorder
	logger   *slog.Logger
}

// NewService constructs a Service. notifier and metrics may be nil.
func NewService(repo Repository, engine *authz.Engine, auditSvc *audit.Service, notifier Notifier, metrics DecisionRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, audit: auditSvc, notifier: notifier, metrics: metrics, logger: logger}
}

// decide counts one engine decision outcome and passes it through.
func (s *Service) decide(operation string, allowed bool) bool {
	if s.metrics != nil {
		s.metrics.RecordDecision(operation, allowed)
	}
	return allowed
}

// Get fetches one contract the actor may view.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*Contract, error) {
	contract, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.decide("can_view", s.engine.CanView(ctx, actor, contract.Snapshot())) {
		return nil, shared.ErrForbidden
	}
	return contract, nil
}

// List returns the contracts visible to the actor. An actor whose active
// assignments collapse to a single contract gets that contract directly;
// otherwise the query is scoped to the accessible company set, optionally
// narrowed further by the request, the session-selected admin scope and the
// single-workspace grant.
func (s *Service) List(ctx context.Context, actor authz.Actor, query ListQuery) ([]Contract, error) {
	scoped := s.engine.Scoped(actor)

	if id, ok := s.engine.LimitedToSingleContract(ctx, actor); ok {
		contract, err := s.repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if !s.decide("can_view", scoped.CanView(ctx, contract.Snapshot())) {
			return nil, nil
		}
		return []Contract{*contract}, nil
	}

	// The session-selected admin scope narrows the listing like explicit
	// query parameters when the request leaves them unset.
	if actor.Role.AdminTier() {
		if query.CompanyID == 0 {
			query.CompanyID = actor.SelectedCompanyID
		}
		if query.WorkspaceID == 0 {
			query.WorkspaceID = actor.SelectedWorkspaceID
		}
	}

	companies, err := scoped.AccessibleCompanies(ctx)
	if err != nil {
		return nil, shared.ErrForbidden
	}
	if query.CompanyID != 0 {
		if !containsID(companies, query.CompanyID) {
			return nil, nil
		}
		companies = []int64{query.CompanyID}
	}

	workspaceID := query.WorkspaceID
	if id, ok := authz.LimitedToSingleWorkspace(actor); ok {
		workspaceID = id
	}

	list, err := s.repo.List(ctx, ListFilters{
		CompanyIDs:  companies,
		WorkspaceID: workspaceID,
		Status:      query.Status,
	})
	if err != nil {
		return nil, err
	}

	// Workspace pinning and the edit allow-list are per row; re-check each
	// candidate through the memoized resolver.
	out := make([]Contract, 0, len(list))
	for _, c := range list {
		if s.decide("can_view", scoped.CanView(ctx, c.Snapshot())) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create inserts a new draft contract in the actor's accessible scope.
func (s *Service) Create(ctx context.Context, actor authz.Actor, contract Contract) (*Contract, error) {
	if !authz.HasCapability(actor, authz.CapEditContract) {
		return nil, shared.ErrForbidden
	}
	if contract.CompanyID == 0 || !s.decide("company_access", s.engine.CanAccessCompany(ctx, actor, contract.CompanyID)) {
		return nil, shared.ErrForbidden
	}
	if contract.WorkspaceID != 0 {
		if err := s.checkWorkspace(ctx, actor, contract.CompanyID, contract.WorkspaceID); err != nil {
			return nil, err
		}
	}
	contract.Title = strings.TrimSpace(contract.Title)
	if contract.Title == "" {
		return nil, fmt.Errorf("%w: contract title required", httpx.ErrValidation)
	}
	if contract.Number == "" {
		contract.Number = uuid.NewString()
	}
	contract.Status = StatusDraft
	contract.CreatedBy = actor.ID

	created, err := s.repo.Create(ctx, contract)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionContractCreated, created.ID, nil)
	return created, nil
}

// Update changes title, workspace pinning and the edit allow-list.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, update Contract) (*Contract, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.decide("can_edit", s.engine.CanEdit(ctx, actor, current.Snapshot())) {
		return nil, shared.ErrForbidden
	}
	update.Title = strings.TrimSpace(update.Title)
	if update.Title == "" {
		return nil, fmt.Errorf("%w: contract title required", httpx.ErrValidation)
	}
	if update.WorkspaceID != 0 && update.WorkspaceID != current.WorkspaceID {
		if err := s.checkWorkspace(ctx, actor, current.CompanyID, update.WorkspaceID); err != nil {
			return nil, err
		}
	}
	update.ID = current.ID

	updated, err := s.repo.Update(ctx, update)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionContractUpdated, updated.ID, nil)
	return updated, nil
}

// Activate moves a draft into the active state. Gated like any other edit.
func (s *Service) Activate(ctx context.Context, actor authz.Actor, id int64) error {
	return s.transition(ctx, actor, id, StatusActive, func(snapshot authz.Contract) bool {
		return s.decide("can_edit", s.engine.CanEdit(ctx, actor, snapshot))
	}, "")
}

// Approve moves an active contract into the approved state.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, id int64) error {
	return s.transition(ctx, actor, id, StatusApproved, func(snapshot authz.Contract) bool {
		return s.decide("can_approve", s.engine.CanApprove(ctx, actor, snapshot))
	}, audit.ActionContractApproved)
}

// Archive retires a contract from any non-archived state.
func (s *Service) Archive(ctx context.Context, actor authz.Actor, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.decide("can_edit", s.engine.CanEdit(ctx, actor, current.Snapshot())) {
		return shared.ErrForbidden
	}
	if current.Status == StatusArchived {
		return fmt.Errorf("%w: contract already archived", httpx.ErrValidation)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusArchived); err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionContractUpdated, id, map[string]any{"status": string(StatusArchived)})
	return nil
}

// Delete soft-deletes a contract.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.decide("can_delete", s.engine.CanDelete(ctx, actor, current.Snapshot())) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionContractDeleted, id, nil)
	return nil
}

// Share grants per-contract visibility to one user, independent of the
// tenant hierarchy. Requires edit rights on the contract.
func (s *Service) Share(ctx context.Context, actor authz.Actor, contractID, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id required", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if !s.decide("can_edit", s.engine.CanEdit(ctx, actor, current.Snapshot())) {
		return shared.ErrForbidden
	}
	err = s.repo.CreateAssignment(ctx, Assignment{
		ContractID: contractID,
		UserID:     userID,
		GrantedBy:  actor.ID,
		GrantedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionContractShared, contractID, map[string]any{"user_id": userID})
	if s.notifier != nil {
		if err := s.notifier.ContractShared(ctx, contractID, userID, actor.ID); err != nil {
			s.logger.Warn("share notification", slog.Int64("contract_id", contractID), slog.Any("error", err))
		}
	}
	return nil
}

// RevokeShare deactivates a grant. The row is kept for the audit trail and
// grants nothing afterwards.
func (s *Service) RevokeShare(ctx context.Context, actor authz.Actor, contractID, userID int64) error {
	current, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if !s.decide("can_edit", s.engine.CanEdit(ctx, actor, current.Snapshot())) {
		return shared.ErrForbidden
	}
	if err := s.repo.RevokeAssignment(ctx, contractID, userID); err != nil {
		return err
	}
	s.record(ctx, actor, audit.ActionShareRevoked, contractID, map[string]any{"user_id": userID})
	return nil
}

// Shares lists the grant history of a contract the actor may view.
func (s *Service) Shares(ctx context.Context, actor authz.Actor, contractID int64) ([]Assignment, error) {
	current, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !s.decide("can_view", s.engine.CanView(ctx, actor, current.Snapshot())) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListAssignments(ctx, contractID)
}

func (s *Service) transition(ctx context.Context, actor authz.Actor, id int64, target Status, allowed func(authz.Contract) bool, action string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !allowed(current.Snapshot()) {
		return shared.ErrForbidden
	}
	if statusTransitions[current.Status] != target {
		return fmt.Errorf("%w: cannot move %s contract to %s", httpx.ErrValidation, current.Status, target)
	}
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return err
	}
	if action == "" {
		action = audit.ActionContractUpdated
	}
	s.record(ctx, actor, action, id, map[string]any{"status": string(target)})
	return nil
}

// checkWorkspace verifies the workspace is active, belongs to the company
// and is reachable by the actor.
func (s *Service) checkWorkspace(ctx context.Context, actor authz.Actor, companyID, workspaceID int64) error {
	workspaces, err := s.engine.AccessibleWorkspaces(ctx, actor, companyID)
	if err != nil {
		return shared.ErrForbidden
	}
	if !containsID(workspaces, workspaceID) {
		return fmt.Errorf("%w: workspace not available in this company", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor authz.Actor, action string, contractID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "contract",
		EntityID: contractID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("record activity", slog.String("action", action), slog.Any("error", err))
	}
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
