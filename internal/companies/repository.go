package companies

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
)

// Repository defines persistence operations for companies. It doubles as
// the engine's CompanyStore so access decisions and CRUD read the same rows.
type Repository interface {
	authz.CompanyStore
	List(ctx context.Context, activeOnly bool) ([]Company, error)
	Get(ctx context.Context, id int64) (*Company, error)
	Create(ctx context.Context, company Company) (*Company, error)
	Update(ctx context.Context, id int64, name string) error
	Archive(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const companyColumns = `id, name, kind, COALESCE(parent_company_id, 0), is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCompanies(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (*Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, company Company) (*Company, error) {
	now := time.Now().UTC()
	var parent any
	if company.ParentCompanyID != 0 {
		parent = company.ParentCompanyID
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO companies (name, kind, parent_company_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, $4, $4)
		 RETURNING `+companyColumns,
		company.Name, string(company.Kind), parent, pgtype.Timestamptz{Time: now, Valid: true})
	return scanCompany(row)
}

func (r *repository) Update(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE companies SET name = $1, updated_at = NOW() WHERE id = $2`, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Archive deactivates a company instead of removing it; contracts keep
// their history and the hierarchy resolver simply stops returning it.
func (r *repository) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE companies SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ActiveCompanies implements authz.CompanyStore.
func (r *repository) ActiveCompanies(ctx context.Context) ([]authz.Company, error) {
	list, err := r.List(ctx, true)
	if err != nil {
		return nil, err
	}
	return toAuthz(list), nil
}

// ActiveSubsidiaries implements authz.CompanyStore.
func (r *repository) ActiveSubsidiaries(ctx context.Context, parentID int64) ([]authz.Company, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies
		 WHERE kind = $1 AND parent_company_id = $2 AND is_active ORDER BY id`,
		string(authz.CompanyKindSubsidiary), parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := collectCompanies(rows)
	if err != nil {
		return nil, err
	}
	return toAuthz(list), nil
}

// FindCompany implements authz.CompanyStore. Missing rows return nil
// without error so the resolver can fall back instead of failing.
func (r *repository) FindCompany(ctx context.Context, id int64) (*authz.Company, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := snapshot(*c)
	return &snap, nil
}

func collectCompanies(rows pgx.Rows) ([]Company, error) {
	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	var kind string
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.Name, &kind, &c.ParentCompanyID, &c.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Kind = authz.CompanyKind(kind)
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func snapshot(c Company) authz.Company {
	return authz.Company{
		ID:              c.ID,
		Kind:            c.Kind,
		ParentCompanyID: c.ParentCompanyID,
		Active:          c.IsActive,
	}
}

func toAuthz(list []Company) []authz.Company {
	out := make([]authz.Company, 0, len(list))
	for _, c := range list {
		out = append(out, snapshot(c))
	}
	return out
}
