package tenants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// Repository defines persistence operations for tenants.
type Repository interface {
	Create(ctx context.Context, tenant identity.Tenant) (identity.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (identity.Tenant, error)
	GetByDomain(ctx context.Context, domain string) (identity.Tenant, error)
	List(ctx context.Context, page shared.Pagination) ([]identity.Tenant, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status identity.TenantStatus) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const tenantColumns = `id, name, domain, status, created_at, updated_at`

// Create inserts a tenant. The domain is stored case-folded; duplicates
// surface as ErrConflict.
func (r *PGRepository) Create(ctx context.Context, tenant identity.Tenant) (identity.Tenant, error) {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	tenant.Domain = shared.CanonDomain(tenant.Domain)
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `INSERT INTO tenants (id, name, domain, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.ID, tenant.Name, tenant.Domain, string(tenant.Status), tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		if identity.IsUniqueViolation(err) {
			return identity.Tenant{}, fmt.Errorf("%w: tenant domain %q already registered", shared.ErrConflict, tenant.Domain)
		}
		return identity.Tenant{}, err
	}
	return tenant, nil
}

// Get fetches a tenant by ID.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (identity.Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

// GetByDomain fetches a tenant by its canonical domain.
func (r *PGRepository) GetByDomain(ctx context.Context, domain string) (identity.Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, shared.CanonDomain(domain)))
}

// List returns tenants ordered by creation time, newest first.
func (r *PGRepository) List(ctx context.Context, page shared.Pagination) ([]identity.Tenant, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []identity.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, tenant)
	}
	return result, total, rows.Err()
}

// SetStatus updates the tenant lifecycle status.
func (r *PGRepository) SetStatus(ctx context.Context, id uuid.UUID, status identity.TenantStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tenants SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (identity.Tenant, error) {
	var (
		tenant identity.Tenant
		status string
	)
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Domain, &status, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Tenant{}, shared.ErrNotFound
		}
		return identity.Tenant{}, err
	}
	tenant.Status = identity.TenantStatus(status)
	return tenant, nil
}

var _ Repository = (*PGRepository)(nil)
