package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/db"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Repository defines persistence for contracts and their visibility grants.
// It doubles as the engine's AssignmentStore and ContractStore so decisions
// read the same rows the API serves.
type Repository interface {
	authz.AssignmentStore
	authz.ContractStore
	Get(ctx context.Context, id int64) (*Contract, error)
	List(ctx context.Context, filters ListFilters) ([]Contract, error)
	Create(ctx context.Context, contract Contract) (*Contract, error)
	Update(ctx context.Context, contract Contract) (*Contract, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	CreateAssignment(ctx context.Context, assignment Assignment) error
	RevokeAssignment(ctx context.Context, contractID, userID int64) error
	ListAssignments(ctx context.Context, contractID int64) ([]Assignment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const contractColumns = `id, number, title, company_id, COALESCE(workspace_id, 0), status,
	created_by, COALESCE(allowed_editor_ids, '{}'), COALESCE(legacy_assignee_ids, '{}'),
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Contract, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1 AND deleted_at IS NULL`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Contract, error) {
	if len(filters.CompanyIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE deleted_at IS NULL AND company_id = ANY($1)`
	args := []any{filters.CompanyIDs}
	if filters.WorkspaceID != 0 {
		args = append(args, filters.WorkspaceID)
		query += fmt.Sprintf(` AND (workspace_id IS NULL OR workspace_id = $%d)`, len(args))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContracts(rows)
}

func (r *repository) Create(ctx context.Context, contract Contract) (*Contract, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO contracts (number, title, company_id, workspace_id, status,
			created_by, allowed_editor_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+contractColumns,
		contract.Number, contract.Title, contract.CompanyID, nullableID(contract.WorkspaceID),
		string(contract.Status), contract.CreatedBy, contract.AllowedEditorIDs,
		pgtype.Timestamptz{Time: now, Valid: true})
	c, err := scanContract(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: contract number %q", httpx.ErrDuplicate, contract.Number)
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, contract Contract) (*Contract, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE contracts
		 SET title = $1, workspace_id = $2, allowed_editor_ids = $3, updated_at = NOW()
		 WHERE id = $4 AND deleted_at IS NULL
		 RETURNING `+contractColumns,
		contract.Title, nullableID(contract.WorkspaceID), contract.AllowedEditorIDs, contract.ID)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contracts SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND deleted_at IS NULL`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete soft-deletes the contract and deactivates its grants in one
// transaction; the rows survive for the audit trail.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE contracts SET deleted_at = NOW(), updated_at = NOW()
			 WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE contract_assignments SET active = FALSE, revoked_at = NOW()
			 WHERE contract_id = $1 AND active`, id)
		return err
	})
}

// CreateAssignment inserts or reactivates a grant. A previously revoked row
// for the same pair becomes active again with a fresh grantor and timestamp.
func (r *repository) CreateAssignment(ctx context.Context, assignment Assignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contract_assignments (contract_id, user_id, granted_by, granted_at, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (contract_id, user_id)
		 DO UPDATE SET granted_by = EXCLUDED.granted_by, granted_at = EXCLUDED.granted_at,
			active = TRUE, revoked_at = NULL`,
		assignment.ContractID, assignment.UserID, assignment.GrantedBy,
		pgtype.Timestamptz{Time: assignment.GrantedAt, Valid: true})
	return err
}

// RevokeAssignment soft-deletes the grant; the row stays for the audit trail.
func (r *repository) RevokeAssignment(ctx context.Context, contractID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contract_assignments SET active = FALSE, revoked_at = NOW()
		 WHERE contract_id = $1 AND user_id = $2 AND active`, contractID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListAssignments(ctx context.Context, contractID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contract_id, user_id, granted_by, granted_at, revoked_at, active
		 FROM contract_assignments WHERE contract_id = $1 ORDER BY granted_at DESC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var grantedAt, revokedAt pgtype.Timestamptz
		if err := rows.Scan(&a.ID, &a.ContractID, &a.UserID, &a.GrantedBy, &grantedAt, &revokedAt, &a.Active); err != nil {
			return nil, err
		}
		if grantedAt.Valid {
			a.GrantedAt = grantedAt.Time
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			a.RevokedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindActiveAssignment implements authz.AssignmentStore. Missing rows return
// nil without error so the engine falls through to the legacy array.
func (r *repository) FindActiveAssignment(ctx context.Context, contractID, userID int64) (*authz.Assignment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT contract_id, user_id, granted_by, granted_at, active
		 FROM contract_assignments
		 WHERE contract_id = $1 AND user_id = $2 AND active`, contractID, userID)
	var a authz.Assignment
	var grantedAt pgtype.Timestamptz
	if err := row.Scan(&a.ContractID, &a.UserID, &a.GrantedBy, &grantedAt, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if grantedAt.Valid {
		a.GrantedAt = grantedAt.Time
	}
	return &a, nil
}

// ActiveAssignedContractIDs implements authz.ContractStore.
func (r *repository) ActiveAssignedContractIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.contract_id FROM contract_assignments a
		 JOIN contracts c ON c.id = a.contract_id AND c.deleted_at IS NULL
		 WHERE a.user_id = $1 AND a.active ORDER BY a.contract_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectContracts(rows pgx.Rows) ([]Contract, error) {
	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	var status string
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.Number, &c.Title, &c.CompanyID, &c.WorkspaceID, &status,
		&c.CreatedBy, &c.AllowedEditorIDs, &c.LegacyAssigneeIDs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Status = Status(status)
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
