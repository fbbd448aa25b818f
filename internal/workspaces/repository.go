package workspaces

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
)

// Repository defines persistence for workspaces and per-user grants. It is
// also the engine's WorkspaceStore.
type Repository interface {
	authz.WorkspaceStore
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]Workspace, error)
	Get(ctx context.Context, id int64) (*Workspace, error)
	Create(ctx context.Context, workspace Workspace) (*Workspace, error)
	Archive(ctx context.Context, id int64) error
	GrantedWorkspaceIDs(ctx context.Context, userID int64) ([]int64, error)
	Grant(ctx context.Context, userID, workspaceID, grantedBy int64) error
	Revoke(ctx context.Context, userID, workspaceID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const workspaceColumns = `id, company_id, name, is_active, created_at, updated_at`

func (r *repository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE company_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Workspace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
	ws, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return ws, nil
}

func (r *repository) Create(ctx context.Context, workspace Workspace) (*Workspace, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO workspaces (company_id, name, is_active, created_at, updated_at)
		 VALUES ($1, $2, TRUE, NOW(), NOW())
		 RETURNING `+workspaceColumns,
		workspace.CompanyID, workspace.Name)
	return scanWorkspace(row)
}

func (r *repository) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspaces SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GrantedWorkspaceIDs returns the workspace IDs explicitly granted to the
// user, used when building the actor for a request.
func (r *repository) GrantedWorkspaceIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT workspace_id FROM workspace_grants WHERE user_id = $1 ORDER BY workspace_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repository) Grant(ctx context.Context, userID, workspaceID, grantedBy int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_grants (user_id, workspace_id, granted_by, granted_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, workspace_id) DO NOTHING`,
		userID, workspaceID, grantedBy)
	return err
}

func (r *repository) Revoke(ctx context.Context, userID, workspaceID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_grants WHERE user_id = $1 AND workspace_id = $2`, userID, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ActiveWorkspaces implements authz.WorkspaceStore.
func (r *repository) ActiveWorkspaces(ctx context.Context, companyID int64) ([]authz.Workspace, error) {
	list, err := r.ListByCompany(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	out := make([]authz.Workspace, 0, len(list))
	for _, ws := range list {
		out = append(out, authz.Workspace{ID: ws.ID, CompanyID: ws.CompanyID, Active: ws.IsActive})
	}
	return out, nil
}

func scanWorkspace(row pgx.Row) (*Workspace, error) {
	var ws Workspace
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&ws.ID, &ws.CompanyID, &ws.Name, &ws.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		ws.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		ws.UpdatedAt = updatedAt.Time
	}
	return &ws, nil
}
